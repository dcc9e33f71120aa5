package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.EuropeanSpanish

	message.SetString(lang, "error.UNKNOWN", "Algo salió mal. Inténtalo de nuevo.")
	message.SetString(lang, "error.NOT_FOUND", "No se encontró el recurso solicitado.")
	message.SetString(lang, "error.ALREADY_EXISTS", "Ya existe un recurso con esos datos.")
	message.SetString(lang, "error.INVALID_ARGUMENT", "La solicitud está mal formada.")
	message.SetString(lang, "error.PERMISSION_DENIED", "No tienes permiso para realizar esta acción.")
	message.SetString(lang, "error.AUTHENTICATION_MISSING", "Inicia sesión para continuar.")
	message.SetString(lang, "error.TOKEN_INVALID", "Tu sesión no es válida. Inicia sesión de nuevo.")
	message.SetString(lang, "error.TOKEN_EXPIRED", "Tu sesión ha caducado. Inicia sesión de nuevo.")
	message.SetString(lang, "error.USER_BAD_CREDENTIALS", "Email o contraseña incorrectos.")
	message.SetString(lang, "error.USER_EMAIL_TAKEN", "Ya existe una cuenta con este email.")
	message.SetString(lang, "error.USER_PASSWORD_TOO_SHORT", "La contraseña debe tener al menos 8 caracteres.")
	message.SetString(lang, "error.USER_LAST_ADMIN", "El último administrador no puede ser degradado.")
	message.SetString(lang, "error.ARTICLE_TITLE_EMPTY", "El título del artículo es obligatorio.")
	message.SetString(lang, "error.ARTICLE_BLOCKS_EMPTY", "Un artículo necesita al menos un bloque de contenido.")
	message.SetString(lang, "error.ARTICLE_INVALID_BLOCK", "Uno de los bloques de contenido no es válido.")
	message.SetString(lang, "error.ARTICLE_CATEGORY_MISSING", "Elige una categoría antes de publicar.")
	message.SetString(lang, "error.ARTICLE_INVALID_STATUS_TRANSITION", "Este artículo no puede pasar a ese estado.")
	message.SetString(lang, "error.ARTICLE_REVIEW_NOTE_REQUIRED", "Se requiere una nota de revisión para rechazar un artículo.")
	message.SetString(lang, "error.CATEGORY_NOT_EMPTY", "Esta categoría todavía tiene artículos o subcategorías.")
	message.SetString(lang, "error.COMMENT_BODY_EMPTY", "El cuerpo del comentario es obligatorio.")
	message.SetString(lang, "error.PLAN_UNKNOWN", "Plan de suscripción desconocido.")
	message.SetString(lang, "error.SUBSCRIPTION_ACTIVE_EXISTS", "Ya tienes una suscripción activa.")
	message.SetString(lang, "error.SEARCH_QUERY_EMPTY", "Escribe algo para buscar.")

	message.SetString(lang, "paywall.preview_notice", "Suscríbete para seguir leyendo.")
}
