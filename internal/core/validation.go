package core

// validation.go checks a draft before it is sent to the store.
//
// Only two rules exist: every record needs an analyst name, and GENERAL
// records need a subject. Both fail with a validation error and no store
// call is made.

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/hwlog/internal/record"
)

// submission is the subset of a draft that carries validation rules.
type submission struct {
	AnalystName string      `validate:"required"`
	RecordType  record.Type `validate:"required,oneof=GENERAL VALIDATION ESCALATION"`
	Subject     string      `validate:"required_if=RecordType GENERAL"`
}

// validationMessages maps a failing field to its user message and code.
var validationMessages = map[string]struct{ code, message string }{
	"AnalystName": {"VAL001", "Por favor, preencha o Nome do Analista."},
	"Subject":     {"VAL002", "Por favor, selecione o Assunto."},
	"RecordType":  {"VAL004", "Modo de formulário inválido."},
}

var validate = validator.New()

// validateDraft returns a validation *Error for the first failing rule,
// analyst name first.
func validateDraft(op string, d record.SupportRecord) error {
	sub := submission{
		AnalystName: strings.TrimSpace(d.AnalystName),
		RecordType:  d.RecordType,
		Subject:     strings.TrimSpace(d.Subject),
	}

	err := validate.Struct(sub)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validationError(op, "VAL001", err.Error())
	}
	for _, name := range []string{"AnalystName", "RecordType", "Subject"} {
		for _, fe := range verrs {
			if fe.Field() == name {
				m := validationMessages[name]
				return validationError(op, m.code, m.message)
			}
		}
	}
	fe := verrs[0]
	return validationError(op, "VAL003", fe.Field()+": "+fe.Tag())
}
