package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// User errors
	CodeUserEmailEmpty        Code = "USER_EMAIL_EMPTY"
	CodeUserEmailTaken        Code = "USER_EMAIL_TAKEN"
	CodeUserPasswordTooShort  Code = "USER_PASSWORD_TOO_SHORT"
	CodeUserInvalidRole       Code = "USER_INVALID_ROLE"
	CodeUserBadCredentials    Code = "USER_BAD_CREDENTIALS"
	CodeUserLastAdmin         Code = "USER_LAST_ADMIN"
	CodeUserEmptyDisplayName  Code = "USER_EMPTY_DISPLAY_NAME"
	CodeTokenInvalid          Code = "TOKEN_INVALID"
	CodeTokenExpired          Code = "TOKEN_EXPIRED"
	CodePermissionDenied      Code = "PERMISSION_DENIED"
	CodeAuthenticationMissing Code = "AUTHENTICATION_MISSING"

	// Article errors
	CodeArticleTitleEmpty              Code = "ARTICLE_TITLE_EMPTY"
	CodeArticleBlocksEmpty             Code = "ARTICLE_BLOCKS_EMPTY"
	CodeArticleInvalidBlock            Code = "ARTICLE_INVALID_BLOCK"
	CodeArticleInvalidLanguage         Code = "ARTICLE_INVALID_LANGUAGE"
	CodeArticleCategoryMissing         Code = "ARTICLE_CATEGORY_MISSING"
	CodeArticleInvalidStatusTransition Code = "ARTICLE_INVALID_STATUS_TRANSITION"
	CodeArticleStatusDisallowsOp       Code = "ARTICLE_STATUS_DISALLOWS_OPERATION"
	CodeArticleReviewNoteRequired      Code = "ARTICLE_REVIEW_NOTE_REQUIRED"
	CodeArticleNotAuthor               Code = "ARTICLE_NOT_AUTHOR"

	// Taxonomy errors
	CodeCategoryNameEmpty    Code = "CATEGORY_NAME_EMPTY"
	CodeCategoryTooDeep      Code = "CATEGORY_TOO_DEEP"
	CodeCategoryNotEmpty     Code = "CATEGORY_NOT_EMPTY"
	CodeCategoryParentCycle  Code = "CATEGORY_PARENT_CYCLE"
	CodeTagSlugEmpty         Code = "TAG_SLUG_EMPTY"
	CodeCategorySlugConflict Code = "CATEGORY_SLUG_CONFLICT"

	// Comment errors
	CodeCommentBodyEmpty      Code = "COMMENT_BODY_EMPTY"
	CodeCommentArticleMissing Code = "COMMENT_ARTICLE_MISSING"
	CodeCommentInvalidStatus  Code = "COMMENT_INVALID_STATUS"

	// Subscription errors
	CodePlanUnknown             Code = "PLAN_UNKNOWN"
	CodePlanNotBillable         Code = "PLAN_NOT_BILLABLE"
	CodeSubscriptionExists      Code = "SUBSCRIPTION_ACTIVE_EXISTS"
	CodeSubscriptionNotActive   Code = "SUBSCRIPTION_NOT_ACTIVE"
	CodeSubscriptionNotRenewing Code = "SUBSCRIPTION_NOT_RENEWING"
	CodePaymentNotRefundable    Code = "PAYMENT_NOT_REFUNDABLE"

	// Ad errors
	CodeAdInvalidPlacement Code = "AD_INVALID_PLACEMENT"
	CodeAdInvalidWindow    Code = "AD_INVALID_WINDOW"
	CodeAdInvalidWeight    Code = "AD_INVALID_WEIGHT"

	// Search errors
	CodeSearchQueryEmpty Code = "SEARCH_QUERY_EMPTY"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// Request errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// HTTPStatus maps the error code to an HTTP status code for API responses.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeCommentArticleMissing, CodePlanUnknown:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeUserEmailTaken, CodeSubscriptionExists,
		CodeCategorySlugConflict, CodeArticleInvalidStatusTransition,
		CodeArticleStatusDisallowsOp, CodeCategoryNotEmpty:
		return http.StatusConflict
	case CodeUserBadCredentials, CodeTokenInvalid, CodeTokenExpired,
		CodeAuthenticationMissing:
		return http.StatusUnauthorized
	case CodePermissionDenied, CodeArticleNotAuthor, CodeUserLastAdmin:
		return http.StatusForbidden
	case CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// FromError extracts a domain error from an error chain, defaulting to
// CodeUnknown when the chain carries no domain error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	for current := err; current != nil; {
		if domainErr, ok := current.(*Error); ok {
			return domainErr
		}
		unwrapper, ok := current.(interface{ Unwrap() error })
		if !ok {
			break
		}
		current = unwrapper.Unwrap()
	}
	return &Error{Code: CodeUnknown, Message: err.Error(), Cause: err}
}
