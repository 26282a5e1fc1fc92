// Package i18n translates user-facing error messages for the geo cache API.
package i18n

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultLocale is the default language locale (English).
	DefaultLocale = "en"
	// AcceptLanguageHeader is the HTTP header name for language preference.
	AcceptLanguageHeader = "Accept-Language"
)

var (
	// defaultTranslator is the singleton translator instance.
	defaultTranslator *Translator
	translatorOnce    sync.Once
)

// Translator handles message translation for different locales.
type Translator struct {
	messages map[string]map[string]string
}

// NewTranslator creates a new translator with the default messages.
func NewTranslator() *Translator {
	return &Translator{
		messages: getDefaultMessages(),
	}
}

// GetTranslator returns the default singleton translator instance.
func GetTranslator() *Translator {
	translatorOnce.Do(func() {
		defaultTranslator = NewTranslator()
	})
	return defaultTranslator
}

// Translate returns the translated message for the given key and locale.
// Falls back to DefaultLocale if the locale is not found.
func (t *Translator) Translate(key, locale string) string {
	if locale == "" {
		locale = DefaultLocale
	}

	localeMessages, ok := t.messages[locale]
	if !ok {
		localeMessages = t.messages[DefaultLocale]
	}

	msg, ok := localeMessages[key]
	if !ok {
		// Fallback to default locale
		if defaultMessages := t.messages[DefaultLocale]; defaultMessages != nil {
			if fallbackMsg, exists := defaultMessages[key]; exists {
				return fallbackMsg
			}
		}
		return key
	}

	return msg
}

// GetLocale extracts the locale from the gin context.
// Checks Accept-Language header and falls back to DefaultLocale.
func GetLocale(c *gin.Context) string {
	acceptLang := c.GetHeader(AcceptLanguageHeader)
	if acceptLang == "" {
		return DefaultLocale
	}

	// e.g. "es-MX,es;q=0.9,en;q=0.8"
	parts := strings.Split(acceptLang, ",")
	if len(parts) > 0 {
		lang := strings.TrimSpace(strings.Split(parts[0], ";")[0])
		// Extract base language (e.g., "en" from "en-US")
		if idx := strings.Index(lang, "-"); idx > 0 {
			lang = lang[:idx]
		}
		// Normalize to lowercase
		lang = strings.ToLower(lang)
		// Validate it's a supported locale
		if _, ok := getDefaultMessages()[lang]; ok {
			return lang
		}
	}

	return DefaultLocale
}

// getDefaultMessages returns the default message translations.
func getDefaultMessages() map[string]map[string]string {
	return map[string]map[string]string{
		"en": {
			"error.invalid_request":         "Invalid request",
			"error.invalid_request_body":    "Invalid request body",
			"error.internal_error":          "An unexpected error occurred",
			"error.api_key_required":        "API key is required",
			"error.invalid_api_key":         "Invalid API key",
			"error.not_found":               "Not found",
			"error.rate_limit_exceeded":     "Too many requests, please try again later",
			"error.timeout":                 "Request timed out",
			"error.validation.coordinates":  "origin and destination need a latitude in [-90, 90] and a longitude in [-180, 180]",
			"error.validation.address":      "address must not be blank",
			"error.validation.batch_size":   "batch must contain between 1 and the maximum allowed requests",
			"error.validation.window":       "window must be a positive duration such as 24h",
			"error.validation.action":       "action must be run or cleanup",
			"error.provider_unavailable":    "No lookup provider could answer the request",
			"error.store_unavailable":       "Cache store is unavailable",
			"error.maintenance_in_progress": "A maintenance run is already in progress",
		},
		"es": {
			"error.invalid_request":         "Solicitud inválida",
			"error.invalid_request_body":    "Cuerpo de la solicitud inválido",
			"error.internal_error":          "Ocurrió un error inesperado",
			"error.api_key_required":        "Se requiere una clave de API",
			"error.invalid_api_key":         "Clave de API inválida",
			"error.not_found":               "No encontrado",
			"error.rate_limit_exceeded":     "Demasiadas solicitudes, inténtelo más tarde",
			"error.timeout":                 "La solicitud excedió el tiempo de espera",
			"error.validation.coordinates":  "origen y destino necesitan una latitud en [-90, 90] y una longitud en [-180, 180]",
			"error.validation.address":      "la dirección no puede estar vacía",
			"error.validation.batch_size":   "el lote debe contener entre 1 y el máximo de solicitudes permitido",
			"error.validation.window":       "la ventana debe ser una duración positiva como 24h",
			"error.validation.action":       "la acción debe ser run o cleanup",
			"error.provider_unavailable":    "Ningún proveedor pudo responder la solicitud",
			"error.store_unavailable":       "El almacén de caché no está disponible",
			"error.maintenance_in_progress": "Ya hay un mantenimiento en curso",
		},
		"pt": {
			"error.invalid_request":         "Requisição inválida",
			"error.invalid_request_body":    "Corpo da requisição inválido",
			"error.internal_error":          "Ocorreu um erro inesperado",
			"error.api_key_required":        "Chave de API é obrigatória",
			"error.invalid_api_key":         "Chave de API inválida",
			"error.not_found":               "Não encontrado",
			"error.rate_limit_exceeded":     "Muitas requisições, tente novamente mais tarde",
			"error.timeout":                 "Tempo de requisição esgotado",
			"error.validation.coordinates":  "origem e destino precisam de latitude em [-90, 90] e longitude em [-180, 180]",
			"error.validation.address":      "o endereço não pode estar vazio",
			"error.validation.batch_size":   "o lote deve conter entre 1 e o máximo de requisições permitido",
			"error.validation.window":       "a janela deve ser uma duração positiva como 24h",
			"error.validation.action":       "a ação deve ser run ou cleanup",
			"error.provider_unavailable":    "Nenhum provedor conseguiu responder à requisição",
			"error.store_unavailable":       "O armazenamento do cache está indisponível",
			"error.maintenance_in_progress": "Uma manutenção já está em andamento",
		},
	}
}
