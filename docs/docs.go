// Package docs содержит swagger-описание HTTP API портала.
// Описание отдаётся по /docs/* через http-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/signup": {
            "post": {
                "description": "Создаёт учётную запись с 14-дневным пробным периодом и открывает сессию.",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Регистрация",
                "parameters": [
                    {"description": "Данные регистрации", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.SignupForm"}}
                ],
                "responses": {
                    "201": {"description": "Учётная запись создана", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректное тело запроса", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Email или username заняты", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "Бэкенд идентификации недоступен", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "description": "Проверяет учётные данные и открывает сессию. Токен возвращается в cookie.",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Вход",
                "parameters": [
                    {"description": "Учётные данные", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LoginForm"}}
                ],
                "responses": {
                    "200": {"description": "Сессия открыта", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Неверные учётные данные", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "Бэкенд идентификации недоступен", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Выход",
                "responses": {
                    "200": {"description": "Сессия завершена", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "Бэкенд идентификации недоступен", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Session"],
                "summary": "Состояние сессии",
                "parameters": [
                    {"type": "boolean", "description": "Ждать разрешения сессии", "name": "wait", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Состояние сессии", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/session/retry": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Session"],
                "summary": "Повтор загрузки профиля",
                "responses": {
                    "200": {"description": "Состояние после повтора", "schema": {"$ref": "#/definitions/response.Response"}},
                    "503": {"description": "Сессия закрыта", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/session/refresh": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Session"],
                "summary": "Продление сессии",
                "responses": {
                    "200": {"description": "Сессия продлена", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Нет сессии или она истекла", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "Бэкенд идентификации недоступен", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/portal/trial": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Portal"],
                "summary": "Статус пробного периода",
                "responses": {
                    "200": {"description": "Статус пробного периода", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "Сессия ещё разрешается или профиль недоступен", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/portal/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Portal"],
                "summary": "Дашборд",
                "responses": {
                    "200": {"description": "Данные дашборда", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "Сессия ещё разрешается или профиль недоступен", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.LoginForm": {
            "type": "object",
            "properties": {
                "method": {"type": "string", "enum": ["email", "username"]},
                "identifier": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "models.SignupForm": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "username": {"type": "string"},
                "password": {"type": "string"},
                "confirm_password": {"type": "string"},
                "certification_level": {"type": "string", "enum": ["EMT-B", "AEMT", "EMTI", "EMTP", "CCPC/FPC"]},
                "agency_name": {"type": "string"},
                "agree_to_terms": {"type": "boolean"}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid request body"},
                "status": {"type": "string", "example": "Error"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo метаданные API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "EMS Portal API",
	Description:      "API портала непрерывного обучения EMS-специалистов",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
