package speech

import "fmt"

// ValidationError некорректные или отсутствующие поля запроса
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// SynthesisError провайдер не смог синтезировать речь
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string { return e.Err.Error() }
func (e *SynthesisError) Unwrap() error { return e.Err }

// CatalogError провайдер не смог вернуть список голосов
type CatalogError struct {
	Err error
}

func (e *CatalogError) Error() string { return e.Err.Error() }
func (e *CatalogError) Unwrap() error { return e.Err }

// ProviderTimeout провайдер не уложился в отведенное время
type ProviderTimeout struct {
	Op  string
	Err error
}

func (e *ProviderTimeout) Error() string {
	return fmt.Sprintf("provider timeout (%s): %v", e.Op, e.Err)
}

func (e *ProviderTimeout) Unwrap() error { return e.Err }

// IOError ошибка работы с временными файлами
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }
