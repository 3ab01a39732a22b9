package validation

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Locale selects the language of validation messages.
type Locale string

const (
	Vietnamese Locale = "vi"
	English    Locale = "en"
)

func (l Locale) tag() language.Tag {
	if l == English {
		return language.English
	}
	return language.Vietnamese
}

// Message keys. They double as ConstraintError.Constraint for checks that
// are not schema constraints.
const (
	keyRequired  = "required"
	keyNumber    = "number"
	keyEmail     = "email"
	keyPhone     = "phone"
	keyDate      = "date"
	keyDateTime  = "datetime"
	keyOption    = "option"
	keyBool      = "checkbox"
	keyMin       = "min"
	keyMax       = "max"
	keyMinLength = "min_length"
	keyMaxLength = "max_length"
	keyPattern   = "pattern"
	keyNotEmpty  = "not_empty"
	keyOneOf     = "one_of"
)

var messages = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Vietnamese))
	set := func(key, vi, en string) {
		_ = b.SetString(language.Vietnamese, key, vi)
		_ = b.SetString(language.English, key, en)
	}
	set(keyRequired, "Trường này là bắt buộc", "This field is required")
	set(keyNumber, "Vui lòng nhập số hợp lệ", "Must be a number")
	set(keyEmail, "Email không hợp lệ", "Invalid email address")
	set(keyPhone, "Số điện thoại không hợp lệ", "Invalid phone number")
	set(keyDate, "Ngày không hợp lệ", "Invalid date")
	set(keyDateTime, "Ngày giờ không hợp lệ", "Invalid date and time")
	set(keyOption, "Giá trị không nằm trong danh sách cho phép", "Value is not one of the allowed options")
	set(keyBool, "Giá trị phải là đúng hoặc sai", "Must be true or false")
	set(keyMin, "Giá trị tối thiểu là %v", "Must be at least %v")
	set(keyMax, "Giá trị tối đa là %v", "Must be at most %v")
	set(keyMinLength, "Tối thiểu %v ký tự", "Must be at least %v characters")
	set(keyMaxLength, "Tối đa %v ký tự", "Must be at most %v characters")
	set(keyPattern, "Không đúng định dạng", "Does not match the required format")
	set(keyNotEmpty, "Không được để trống", "Must not be empty")
	set(keyOneOf, "Phải là một trong: %v", "Must be one of: %v")
	return b
}()

func printer(l Locale) *message.Printer {
	return message.NewPrinter(l.tag(), message.Catalog(messages))
}
