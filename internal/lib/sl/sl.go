// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель — упростить формирование структурированных полей лога,
// например, для передачи информации об ошибках и о владельце сессии.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to fetch profile", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Principal возвращает slog.Attr с идентификатором принципала.
// Пустой идентификатор логируется как "anonymous".
func Principal(id string) slog.Attr {
	if id == "" {
		id = "anonymous"
	}
	return slog.String("principal_id", id)
}

// Session возвращает slog.Attr с идентификатором браузерной сессии.
func Session(id string) slog.Attr {
	return slog.String("session_id", id)
}
