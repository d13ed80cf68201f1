// Package i18n localizes the user-facing hints the server attaches to
// failures and confirmation prompts.
//
// The language is chosen once at startup from configuration (the LANGUAGE
// environment variable by default) and matched against English, Chinese and
// German with golang.org/x/text/language. Messages live in a
// golang.org/x/text/message catalog with English as the fallback.
package i18n
