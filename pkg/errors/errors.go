package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType representa a categoria de um erro do pipeline
type ErrorType string

const (
	// ErrorTypeFetch representa falhas ao baixar uma página de ofertas
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeParse representa falhas ao ler o HTML de uma página
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypePersistence representa falhas de transação no banco
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeRateLimit representa um pedido de espera vindo do destino
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeTransport representa qualquer outra falha de envio
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeConfiguration representa erros de configuração
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError representa um erro classificado de uma etapa do pipeline
type PipelineError struct {
	Type       ErrorType
	Stage      string
	Message    string
	Err        error
	RetryAfter time.Duration
	Time       time.Time
}

// Error implementa a interface error
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
}

// Unwrap retorna o erro original
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable indica se a etapa pode ser repetida depois
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeFetch, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// New cria um novo PipelineError
func New(errType ErrorType, stage, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Stage:   stage,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch cria um erro de download de página
func NewFetch(stage, message string, err error) *PipelineError {
	return New(ErrorTypeFetch, stage, message, err)
}

// NewParse cria um erro de leitura de HTML
func NewParse(stage, message string, err error) *PipelineError {
	return New(ErrorTypeParse, stage, message, err)
}

// NewPersistence cria um erro de banco de dados
func NewPersistence(stage, message string, err error) *PipelineError {
	return New(ErrorTypePersistence, stage, message, err)
}

// NewRateLimit cria um erro de limite de envio com o tempo de espera exigido
func NewRateLimit(stage string, wait time.Duration, err error) *PipelineError {
	e := New(ErrorTypeRateLimit, stage, fmt.Sprintf("rate limited for %v", wait), err)
	e.RetryAfter = wait
	return e
}

// NewTransport cria um erro de envio
func NewTransport(stage, message string, err error) *PipelineError {
	return New(ErrorTypeTransport, stage, message, err)
}

// NewConfiguration cria um erro de configuração
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "config", message, err)
}

// IsType verifica se algum erro da cadeia é um PipelineError do tipo informado
func IsType(err error, t ErrorType) bool {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Type == t
	}
	return false
}

// IsRateLimit retorna o tempo de espera quando err é um erro de limite de envio
func IsRateLimit(err error) (time.Duration, bool) {
	var pe *PipelineError
	if stderrors.As(err, &pe) && pe.Type == ErrorTypeRateLimit {
		return pe.RetryAfter, true
	}
	return 0, false
}
