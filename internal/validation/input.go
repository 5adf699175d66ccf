package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinTitleLength    = 3
	MaxTitleLength    = 200
	MaxDescriptionLength = 5000
	MaxAmount            = 100000000.0 // 100 миллионов
	MaxExternalLinkLength = 500
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	// Базовая проверка формата
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	// Проверка на валидные символы в локальной части
	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	// Проверка на валидные символы в доменной части
	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	// Проверка длины
	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	// Проверка на допустимые символы (только буквы, цифры и подчеркивание)
	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	// Проверка, что не начинается с цифры
	if len(username) > 0 && unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateTitle проверяет заголовок задания или объявления.
func ValidateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок обязателен")
	}
	return ValidateLength("заголовок", strings.TrimSpace(title), MinTitleLength, MaxTitleLength)
}

// ValidateDescription проверяет необязательное описание.
func ValidateDescription(description *string) error {
	if description != nil && *description != "" {
		desc := strings.TrimSpace(*description)
		if err := ValidateLength("описание", desc, 0, MaxDescriptionLength); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAmount проверяет денежную сумму.
func ValidateAmount(fieldName string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%s должна быть положительной", fieldName)
	}
	if amount > MaxAmount {
		return fmt.Errorf("%s не может превышать %.0f", fieldName, MaxAmount)
	}
	return nil
}

// ValidateExternalLink проверяет внешнюю ссылку.
func ValidateExternalLink(link *string) error {
	if link != nil && *link != "" {
		linkStr := strings.TrimSpace(*link)

		if err := ValidateLength("внешняя ссылка", linkStr, 0, MaxExternalLinkLength); err != nil {
			return err
		}

		// Проверка формата URL
		parsedURL, err := url.Parse(linkStr)
		if err != nil {
			return fmt.Errorf("некорректный формат URL")
		}

		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("ссылка должна начинаться с http:// или https://")
		}

		if parsedURL.Host == "" {
			return fmt.Errorf("ссылка должна содержать доменное имя")
		}
	}
	return nil
}
