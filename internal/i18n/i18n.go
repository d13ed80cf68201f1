package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Each key is registered for every supported language.
const (
	KeyPermissionDenied  = "permission_denied"
	KeyTargetNotFound    = "target_not_found"
	KeyTimeout           = "timeout"
	KeyInvalidDateTime   = "invalid_datetime"
	KeyInvalidDate       = "invalid_date"
	KeyMissingParameter  = "missing_parameter"
	KeyConfirmDelete     = "confirm_delete"
	KeyNoMatchingEvents  = "no_matching_events"
	KeyCalendarAppAccess = "calendar_app_access"
)

// Supported lists the languages with a complete catalog, in preference order.
var Supported = []language.Tag{
	language.English,
	language.Chinese,
	language.German,
}

var (
	matcher  = language.NewMatcher(Supported)
	messages = newCatalog()
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range translations {
		for key, msg := range entries {
			// SetString only fails on malformed tags, which the table cannot contain.
			_ = b.SetString(tag, key, msg)
		}
	}
	return b
}

var translations = map[language.Tag]map[string]string{
	language.English: {
		KeyPermissionDenied:  "Grant Calendar access in System Settings > Privacy & Security > Calendars, and allow automation of Calendar for the app running this server.",
		KeyTargetNotFound:    "Calendar %q was not found. Use list-calendars to see the available names; names are case-sensitive.",
		KeyTimeout:           "Calendar did not answer within %s. Retry with a narrower scope or raise the script timeout.",
		KeyInvalidDateTime:   "Use the format YYYY-MM-DD HH:MM with a 24-hour clock, for example 2025-01-15 14:30.",
		KeyInvalidDate:       "Use the format YYYY-MM-DD, for example 2025-01-13.",
		KeyMissingParameter:  "Provide the %s parameter.",
		KeyConfirmDelete:     "This deletes every event in calendar %q whose title contains %q. Call again with confirm set to true to proceed.",
		KeyNoMatchingEvents:  "No matching events",
		KeyCalendarAppAccess: "Make sure Calendar.app is installed and has been opened at least once.",
	},
	language.Chinese: {
		KeyPermissionDenied:  "请在 系统设置 > 隐私与安全性 > 日历 中授予日历访问权限，并允许运行本服务的应用控制日历。",
		KeyTargetNotFound:    "未找到日历 %q。请使用 list-calendars 查看可用的日历名称，名称区分大小写。",
		KeyTimeout:           "日历在 %s 内没有响应。请缩小范围后重试，或增大脚本超时时间。",
		KeyInvalidDateTime:   "请使用 YYYY-MM-DD HH:MM 格式（24 小时制），例如 2025-01-15 14:30。",
		KeyInvalidDate:       "请使用 YYYY-MM-DD 格式，例如 2025-01-13。",
		KeyMissingParameter:  "请提供参数 %s。",
		KeyConfirmDelete:     "此操作将删除日历 %q 中标题包含 %q 的所有事件。请将 confirm 设置为 true 后再次调用。",
		KeyNoMatchingEvents:  "没有找到匹配的事件",
		KeyCalendarAppAccess: "请确认已安装日历应用，并且至少打开过一次。",
	},
	language.German: {
		KeyPermissionDenied:  "Erlaube den Kalenderzugriff unter Systemeinstellungen > Datenschutz & Sicherheit > Kalender und erlaube der App, die diesen Server ausführt, Kalender zu steuern.",
		KeyTargetNotFound:    "Kalender %q wurde nicht gefunden. Mit list-calendars lassen sich die verfügbaren Namen anzeigen; Groß- und Kleinschreibung wird beachtet.",
		KeyTimeout:           "Kalender hat nicht innerhalb von %s geantwortet. Versuche es mit einem engeren Bereich erneut oder erhöhe das Skript-Timeout.",
		KeyInvalidDateTime:   "Verwende das Format JJJJ-MM-TT HH:MM im 24-Stunden-Format, zum Beispiel 2025-01-15 14:30.",
		KeyInvalidDate:       "Verwende das Format JJJJ-MM-TT, zum Beispiel 2025-01-13.",
		KeyMissingParameter:  "Gib den Parameter %s an.",
		KeyConfirmDelete:     "Dadurch werden alle Termine im Kalender %q gelöscht, deren Titel %q enthält. Rufe das Tool erneut mit confirm auf true auf.",
		KeyNoMatchingEvents:  "Keine passenden Termine",
		KeyCalendarAppAccess: "Stelle sicher, dass die Kalender-App installiert ist und mindestens einmal geöffnet wurde.",
	},
}

// Translator renders catalog messages for one language.
// A Translator is safe for concurrent use.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Translator for the best match of lang among the supported
// languages. lang may be a BCP 47 tag, an Accept-Language list, or a POSIX
// locale such as "de_DE.UTF-8" or "zh_CN:en". Unknown values fall back to English.
func New(lang string) *Translator {
	tag := Match(lang)
	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(messages)),
	}
}

// Match resolves lang to one of the Supported tags.
func Match(lang string) language.Tag {
	lang = normalize(lang)
	if lang == "" {
		return language.English
	}

	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return language.English
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return language.English
	}
	return Supported[index]
}

// normalize turns POSIX locale strings into something ParseAcceptLanguage understands.
func normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if strings.ContainsAny(lang, ",;") {
		return lang
	}
	// LANGUAGE may hold a colon-separated priority list
	lang, _, _ = strings.Cut(lang, ":")
	// drop encoding and modifier: de_DE.UTF-8@euro
	lang, _, _ = strings.Cut(lang, ".")
	lang, _, _ = strings.Cut(lang, "@")
	if lang == "C" || lang == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(lang, "_", "-")
}

// Language returns the matched language tag.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Sprintf renders the message for key with args.
func (t *Translator) Sprintf(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}
