package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.AmericanEnglish

	// API errors
	message.SetString(lang, "error.UNKNOWN", "Something went wrong. Please try again.")
	message.SetString(lang, "error.NOT_FOUND", "The requested resource was not found.")
	message.SetString(lang, "error.ALREADY_EXISTS", "A resource with those details already exists.")
	message.SetString(lang, "error.INVALID_ARGUMENT", "The request was malformed.")
	message.SetString(lang, "error.PERMISSION_DENIED", "You do not have permission to perform this action.")
	message.SetString(lang, "error.AUTHENTICATION_MISSING", "Sign in to continue.")
	message.SetString(lang, "error.TOKEN_INVALID", "Your session is invalid. Sign in again.")
	message.SetString(lang, "error.TOKEN_EXPIRED", "Your session has expired. Sign in again.")
	message.SetString(lang, "error.USER_BAD_CREDENTIALS", "Email or password is incorrect.")
	message.SetString(lang, "error.USER_EMAIL_TAKEN", "An account with this email already exists.")
	message.SetString(lang, "error.USER_PASSWORD_TOO_SHORT", "Password must be at least 8 characters.")
	message.SetString(lang, "error.USER_LAST_ADMIN", "The last administrator cannot be demoted.")
	message.SetString(lang, "error.ARTICLE_TITLE_EMPTY", "Article title is required.")
	message.SetString(lang, "error.ARTICLE_BLOCKS_EMPTY", "An article needs at least one content block.")
	message.SetString(lang, "error.ARTICLE_INVALID_BLOCK", "One of the content blocks is invalid.")
	message.SetString(lang, "error.ARTICLE_CATEGORY_MISSING", "Pick a category before publishing.")
	message.SetString(lang, "error.ARTICLE_INVALID_STATUS_TRANSITION", "This article cannot move to that state.")
	message.SetString(lang, "error.ARTICLE_REVIEW_NOTE_REQUIRED", "A review note is required to reject an article.")
	message.SetString(lang, "error.CATEGORY_NOT_EMPTY", "This category still has articles or subcategories.")
	message.SetString(lang, "error.COMMENT_BODY_EMPTY", "Comment body is required.")
	message.SetString(lang, "error.PLAN_UNKNOWN", "Unknown subscription plan.")
	message.SetString(lang, "error.SUBSCRIPTION_ACTIVE_EXISTS", "You already have an active subscription.")
	message.SetString(lang, "error.SEARCH_QUERY_EMPTY", "Type something to search for.")

	// Paywall
	message.SetString(lang, "paywall.preview_notice", "Subscribe to keep reading this story.")
}
