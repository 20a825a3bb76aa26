package intake

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ashureev/psicoflow/internal/domain"
)

// Personal data keys. They double as submission field names.
const (
	FieldName         = "nome"
	FieldAge          = "idade"
	FieldPhone        = "telefone"
	FieldRegistration = "matricula"
	FieldCourse       = "curso"
	FieldTerm         = "periodo"
)

// Validator checks raw input and returns the normalized value to store.
type Validator func(raw string) (string, bool)

// Field is one personal data question.
type Field struct {
	Key      string
	Prompt   string
	Retry    string
	Validate Validator
}

// DefaultFields returns the ordered personal data questionnaire.
func DefaultFields(collectPhone bool) []Field {
	fields := []Field{
		{
			Key:      FieldName,
			Prompt:   "Qual seu nome completo?",
			Retry:    "Nome inválido. Use apenas letras, com pelo menos 3 caracteres. Exemplo: Maria da Silva.",
			Validate: ValidateName,
		},
		{
			Key:      FieldAge,
			Prompt:   "Qual sua idade?",
			Retry:    "Idade inválida. Informe um número entre 10 e 100. Exemplo: 19.",
			Validate: ValidateAge,
		},
	}
	if collectPhone {
		fields = append(fields, Field{
			Key:      FieldPhone,
			Prompt:   "Qual seu telefone com DDD?",
			Retry:    "Telefone inválido. Informe DDD e número. Exemplo: (92) 99123-4567.",
			Validate: ValidatePhone,
		})
	}
	return append(fields,
		Field{
			Key:      FieldRegistration,
			Prompt:   "Informe sua matrícula.",
			Retry:    "Matrícula inválida. Informe de 6 a 15 dígitos. Exemplo: 2023104567.",
			Validate: ValidateRegistration,
		},
		Field{
			Key:      FieldCourse,
			Prompt:   "Qual o seu curso?",
			Retry:    "Curso inválido. Use apenas letras. Exemplo: Informática.",
			Validate: ValidateCourse,
		},
		Field{
			Key:      FieldTerm,
			Prompt:   "Qual o período/semestre atual?",
			Retry:    "Período inválido. Informe um número entre 1 e 12. Exemplo: 3.",
			Validate: ValidateTerm,
		},
	)
}

// nextField returns the first field not yet filled in sess.
func nextField(fields []Field, sess *domain.Session) (Field, bool) {
	for _, f := range fields {
		if _, ok := sess.PersonalData[f.Key]; !ok {
			return f, true
		}
	}
	return Field{}, false
}

var (
	wordsRegex     = regexp.MustCompile(`^[\p{L}\s'’-]+$`)
	phoneSeparator = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "", "/", "")
)

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// ValidateName accepts letters, spaces, hyphens and apostrophes, at least
// three characters after collapsing whitespace.
func ValidateName(raw string) (string, bool) {
	name := normalizeSpaces(raw)
	if len([]rune(name)) < 3 || !wordsRegex.MatchString(name) || !hasLetter(name) {
		return "", false
	}
	return name, true
}

// ValidateAge accepts an integer between 10 and 100.
func ValidateAge(raw string) (string, bool) {
	return intInRange(raw, 10, 100)
}

// ValidatePhone strips separators and an optional leading "+" and accepts
// 11 to 13 digits.
func ValidatePhone(raw string) (string, bool) {
	phone := phoneSeparator.Replace(strings.TrimSpace(raw))
	plus := strings.HasPrefix(phone, "+")
	digits := strings.TrimPrefix(phone, "+")
	if !isDigits(digits) || len(digits) < 11 || len(digits) > 13 {
		return "", false
	}
	if plus {
		return "+" + digits, true
	}
	return digits, true
}

// ValidateRegistration keeps only digits and accepts 6 to 15 of them.
func ValidateRegistration(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) < 6 || len(digits) > 15 {
		return "", false
	}
	return digits, true
}

// ValidateCourse accepts letters, spaces, hyphens and apostrophes.
func ValidateCourse(raw string) (string, bool) {
	course := normalizeSpaces(raw)
	if course == "" || !wordsRegex.MatchString(course) || !hasLetter(course) {
		return "", false
	}
	return course, true
}

// ValidateTerm accepts an integer between 1 and 12, optionally followed by
// an ordinal marker such as "3º".
func ValidateTerm(raw string) (string, bool) {
	term := strings.TrimSpace(raw)
	term = strings.TrimRight(term, "º°ªo")
	return intInRange(term, 1, 12)
}

func intInRange(raw string, lo, hi int) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < lo || n > hi {
		return "", false
	}
	return strconv.Itoa(n), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
