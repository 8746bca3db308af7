package domain

// Language is a topic catalogue language code.
type Language string

const (
	LanguageGerman  Language = "de"
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
	LanguageSpanish Language = "es"
)

// Languages lists the supported languages in selector order.
var Languages = []Language{LanguageGerman, LanguageEnglish, LanguageFrench, LanguageSpanish}

// ValidLanguage reports whether code is a supported language.
func ValidLanguage(code string) bool {
	for _, l := range Languages {
		if string(l) == code {
			return true
		}
	}
	return false
}

// Side is where a transcript line is placed in a view or document.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// WarningCode identifies an advisory, non-blocking notice.
type WarningCode string

const (
	WarningMessageTooLong WarningCode = "message_too_long"
	WarningVolume         WarningCode = "volume_exceeded"
	WarningUnpaired       WarningCode = "unpaired_participant"
)

// Warning is a user-visible advisory.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}
