package service

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// FieldError describe un fallo de validación a nivel de campo.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// HashPassword aplica bcrypt con salt aleatorio por llamada.
func HashPassword(plain string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// CheckPassword compara en tiempo constante contra el digest almacenado.
func CheckPassword(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidatePassword aplica la política de contraseñas del boundary:
// mínimo 6 caracteres, con mayúscula, minúscula y dígito.
func ValidatePassword(field, plain string) []FieldError {
	var errs []FieldError
	if len(plain) < minPasswordLength {
		errs = append(errs, FieldError{Field: field, Message: "must be at least 6 characters long"})
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		errs = append(errs, FieldError{
			Field:   field,
			Message: "must contain at least one uppercase letter, one lowercase letter, and one number",
		})
	}
	return errs
}
