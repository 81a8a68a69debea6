package core

// error_messages.go maps errors to the text shown to analysts.
//
// # Error Codes Reference
//
// Codes let an analyst quote a failure to support. Classified errors
// (*Error) map by Kind unless they carry their own Code and Message;
// anything else is matched against technical patterns.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Analyst name missing
//	VAL002 - Subject missing on a GENERAL record
//	VAL003 - Unknown field or bad value in an update
//	VAL004 - Invalid form mode
//	VAL005 - Malformed request body
//	VAL006 - Store URL or key missing when saving settings
//	VAL007 - Store URL is not a postgres:// URL
//
// # Table Errors (TBL001)
//
//	TBL001 - Records table does not exist in the store
//	         Action: open Settings > View SQL and create it
//	         Patterns: "42P01", "does not exist"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused / failed to connect
//	DB002 - Connection reset
//	DB003 - Generic store failure (default for connectivity)
//	DB004 - Timeout
//	DB005 - Insufficient privilege on the table
//	DB006 - Bad store credentials
//
// # Permission Errors (AUTH001-AUTH099)
//
//	AUTH001 - Role does not allow the operation
//	AUTH002 - Missing or unknown API key
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Filter selected no records
//	EXP002 - Unknown filter or format
//
// # Other
//
//	NF001   - Record not found
//	RATE001 - Too many requests
//	ERR000  - Unknown error; check the server log for the request id
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`          // What happened (user-friendly)
	Action  string `json:"action,omitempty"` // What to do about it
	Code    string `json:"code"`             // Error code for support reference
	Kind    Kind   `json:"kind,omitempty"`   // Classification, empty for unclassified errors
}

// kindMessages are the defaults for classified errors.
var kindMessages = map[Kind]UserMessage{
	KindValidation: {
		Message: "Por favor, preencha os campos obrigatórios.",
		Action:  "Revise o formulário e tente novamente",
		Code:    "VAL001",
	},
	KindMissingTable: {
		Message: "A tabela de registros não existe no banco de dados.",
		Action:  "Vá em Configurações > Ver SQL e crie a tabela",
		Code:    "TBL001",
	},
	KindConnectivity: {
		Message: "Erro de conexão com o banco.",
		Action:  "Verifique a conexão e tente novamente",
		Code:    "DB003",
	},
	KindPermission: {
		Message: "Permissão negada.",
		Action:  "Entre com um usuário Administrador",
		Code:    "AUTH001",
	},
	KindNotFound: {
		Message: "Registro não encontrado.",
		Action:  "Atualize a lista de registros",
		Code:    "NF001",
	},
	KindEmptyExport: {
		Message: "Não há dados para exportar com este filtro.",
		Action:  "Escolha outro filtro",
		Code:    "EXP001",
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text to user messages.
var errorPatterns = []errorPattern{
	// Missing table
	{
		pattern: "42p01",
		msg:     withKind(kindMessages[KindMissingTable], KindMissingTable),
	},
	{
		pattern: "does not exist",
		msg:     withKind(kindMessages[KindMissingTable], KindMissingTable),
	},

	// Connection
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Não foi possível conectar ao banco de dados.",
			Action:  "Tente novamente em alguns instantes",
			Code:    "DB001",
			Kind:    KindConnectivity,
		},
	},
	{
		pattern: "failed to connect",
		msg: UserMessage{
			Message: "Não foi possível conectar ao banco de dados.",
			Action:  "Tente novamente em alguns instantes",
			Code:    "DB001",
			Kind:    KindConnectivity,
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "A conexão com o banco foi interrompida.",
			Action:  "Tente novamente",
			Code:    "DB002",
			Kind:    KindConnectivity,
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "O banco de dados não respondeu a tempo.",
			Action:  "Tente novamente",
			Code:    "DB004",
			Kind:    KindConnectivity,
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "O banco de dados não respondeu a tempo.",
			Action:  "Tente novamente",
			Code:    "DB004",
			Kind:    KindConnectivity,
		},
	},
	{
		pattern: "password authentication failed",
		msg: UserMessage{
			Message: "Credenciais do banco inválidas.",
			Action:  "Revise a URL e a chave em Configurações",
			Code:    "DB006",
			Kind:    KindConnectivity,
		},
	},
	{
		pattern: "permission denied for",
		msg: UserMessage{
			Message: "O banco recusou a operação.",
			Action:  "Verifique as permissões da tabela",
			Code:    "DB005",
			Kind:    KindConnectivity,
		},
	},

	// Auth
	{
		pattern: "api key",
		msg: UserMessage{
			Message: "Credencial inválida ou ausente.",
			Action:  "Informe uma chave de API válida",
			Code:    "AUTH002",
			Kind:    KindPermission,
		},
	},
	{
		pattern: "unknown credential",
		msg: UserMessage{
			Message: "Credencial inválida ou ausente.",
			Action:  "Informe uma chave de API válida",
			Code:    "AUTH002",
			Kind:    KindPermission,
		},
	},

	// Export
	{
		pattern: "unknown report filter",
		msg: UserMessage{
			Message: "Filtro de relatório inválido.",
			Action:  "Use ALL, VALIDATED, NOT_VALIDATED ou ESCALATED",
			Code:    "EXP002",
		},
	},
	{
		pattern: "unknown report format",
		msg: UserMessage{
			Message: "Formato de relatório inválido.",
			Action:  "Use csv ou xlsx",
			Code:    "EXP002",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Muitas requisições.",
			Action:  "Aguarde um momento antes de tentar novamente",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "Ocorreu um erro inesperado.",
	Action:  "Tente novamente ou contate o suporte",
	Code:    "ERR000",
}

func withKind(m UserMessage, k Kind) UserMessage {
	m.Kind = k
	return m
}

// MapError converts an error to a user-friendly message.
// Returns an empty UserMessage for nil errors.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ce *Error
	if errors.As(err, &ce) {
		msg := withKind(kindMessages[ce.Kind], ce.Kind)
		if ce.Message == "" && ce.Err != nil {
			// Let the cause refine generic store failures.
			if m, ok := matchPattern(ce.Err); ok {
				if m.Kind == "" || m.Kind == ce.Kind {
					m.Kind = ce.Kind
					return m
				}
			}
		}
		if ce.Message != "" {
			msg.Message = ce.Message
		}
		if ce.Code != "" {
			msg.Code = ce.Code
		}
		if msg.Code == "" {
			msg.Code = defaultMessage.Code
		}
		return msg
	}

	if m, ok := matchPattern(err); ok {
		return m
	}
	return defaultMessage
}

func matchPattern(err error) (UserMessage, bool) {
	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError returns a formatted error string suitable for display.
// Format: "Message (Código: CODE). Action"
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	msg := MapError(err)
	if msg.Action != "" {
		return fmt.Sprintf("%s (Código: %s). %s", msg.Message, msg.Code, msg.Action)
	}
	return fmt.Sprintf("%s (Código: %s)", msg.Message, msg.Code)
}

// IsUserFacing returns true if the error maps to a known message
// rather than the ERR000 default.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with its user message.
type UserError struct {
	UserMessage
	Err error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with its mapped message. Returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{UserMessage: MapError(err), Err: err}
}
