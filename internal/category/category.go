// Package category maps canonical budget category codes to the free-text
// labels that may appear on stored transactions.
//
// Transactions keep their category as free text so that bank-synced data with
// a different vocabulary can be stored untouched. Budgets always use a code.
// Matching between the two goes through this table and nowhere else.
package category

import "sort"

const (
	Entertainment = "ENTERTAINMENT"
	Cinema        = "CINEMA"
	Restaurants   = "RESTAURANTS"
	Transport     = "TRANSPORT"
	Groceries     = "GROCERIES"
	Clothing      = "CLOTHING"
	Health        = "HEALTH"
	Education     = "EDUCATION"
	Utilities     = "UTILITIES"
	Internet      = "INTERNET"
	Mobile        = "MOBILE"
	Tech          = "TECH"
	Gifts         = "GIFTS"
	Travel        = "TRAVEL"
	Sports        = "SPORTS"
	Books         = "BOOKS"
	Beauty        = "BEAUTY"
	Home          = "HOME"
	Pets          = "PETS"
	Other         = "OTHER"
)

// labelToCode maps every known legacy label to its canonical code.
// Several labels may share one code.
var labelToCode = map[string]string{
	"Entertainment": Entertainment,
	"Развлечения":   Entertainment,

	"Cinema": Cinema,
	"Кино":   Cinema,

	"Restaurants": Restaurants,
	"Рестораны":   Restaurants,

	"Transport": Transport,
	"Транспорт": Transport,

	"Groceries": Groceries,
	"Продукты":  Groceries,

	"Clothing": Clothing,
	"Одежда":   Clothing,

	"Health":   Health,
	"Здоровье": Health,

	"Education":   Education,
	"Образование": Education,

	"Utilities":           Utilities,
	"Коммунальные услуги": Utilities,

	"Internet": Internet,
	"Интернет": Internet,

	"Mobile":          Mobile,
	"Мобильная связь": Mobile,

	"Tech":    Tech,
	"Техника": Tech,

	"Gifts":   Gifts,
	"Подарки": Gifts,

	"Travel":      Travel,
	"Путешествия": Travel,

	"Sports": Sports,
	"Спорт":  Sports,

	"Books": Books,
	"Книги": Books,

	"Beauty":  Beauty,
	"Красота": Beauty,

	"Home": Home,
	"Дом":  Home,

	"Pets":              Pets,
	"Домашние животные": Pets,

	"Other":  Other,
	"Другое": Other,
}

var codes = []string{
	Entertainment, Cinema, Restaurants, Transport, Groceries, Clothing, Health,
	Education, Utilities, Internet, Mobile, Tech, Gifts, Travel, Sports, Books,
	Beauty, Home, Pets, Other,
}

// codeToLabels is the inverted table, built once. Labels are sorted so that
// Variants is deterministic.
var codeToLabels = func() map[string][]string {
	out := make(map[string][]string, len(codes))
	for label, code := range labelToCode {
		out[code] = append(out[code], label)
	}
	for code := range out {
		sort.Strings(out[code])
	}
	return out
}()

var codeSet = func() map[string]struct{} {
	out := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		out[c] = struct{}{}
	}
	return out
}()

// Variants returns the code itself followed by every legacy label mapped to it.
// Unknown codes yield a single-element slice containing the code.
func Variants(code string) []string {
	labels := codeToLabels[code]
	out := make([]string, 0, len(labels)+1)
	out = append(out, code)
	return append(out, labels...)
}

// Canonical returns the code a label belongs to. Codes map to themselves and
// unknown labels are returned unchanged.
func Canonical(label string) string {
	if _, ok := codeSet[label]; ok {
		return label
	}
	if code, ok := labelToCode[label]; ok {
		return code
	}
	return label
}

// Equivalents returns every string treated as the same category as label.
func Equivalents(label string) []string {
	return Variants(Canonical(label))
}

// IsCode reports whether s is one of the canonical budget codes.
func IsCode(s string) bool {
	_, ok := codeSet[s]
	return ok
}

// Codes lists the canonical codes in declaration order.
func Codes() []string {
	return append([]string(nil), codes...)
}
