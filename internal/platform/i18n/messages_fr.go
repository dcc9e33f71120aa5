package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.French

	message.SetString(lang, "error.UNKNOWN", "Une erreur est survenue. Veuillez réessayer.")
	message.SetString(lang, "error.NOT_FOUND", "La ressource demandée est introuvable.")
	message.SetString(lang, "error.ALREADY_EXISTS", "Une ressource avec ces informations existe déjà.")
	message.SetString(lang, "error.INVALID_ARGUMENT", "La requête est mal formée.")
	message.SetString(lang, "error.PERMISSION_DENIED", "Vous n'avez pas la permission d'effectuer cette action.")
	message.SetString(lang, "error.AUTHENTICATION_MISSING", "Connectez-vous pour continuer.")
	message.SetString(lang, "error.TOKEN_INVALID", "Votre session est invalide. Reconnectez-vous.")
	message.SetString(lang, "error.TOKEN_EXPIRED", "Votre session a expiré. Reconnectez-vous.")
	message.SetString(lang, "error.USER_BAD_CREDENTIALS", "Email ou mot de passe incorrect.")
	message.SetString(lang, "error.USER_EMAIL_TAKEN", "Un compte avec cet email existe déjà.")
	message.SetString(lang, "error.USER_PASSWORD_TOO_SHORT", "Le mot de passe doit contenir au moins 8 caractères.")
	message.SetString(lang, "error.USER_LAST_ADMIN", "Le dernier administrateur ne peut pas être rétrogradé.")
	message.SetString(lang, "error.ARTICLE_TITLE_EMPTY", "Le titre de l'article est requis.")
	message.SetString(lang, "error.ARTICLE_BLOCKS_EMPTY", "Un article nécessite au moins un bloc de contenu.")
	message.SetString(lang, "error.ARTICLE_INVALID_BLOCK", "L'un des blocs de contenu est invalide.")
	message.SetString(lang, "error.ARTICLE_CATEGORY_MISSING", "Choisissez une catégorie avant de publier.")
	message.SetString(lang, "error.ARTICLE_INVALID_STATUS_TRANSITION", "Cet article ne peut pas passer à cet état.")
	message.SetString(lang, "error.ARTICLE_REVIEW_NOTE_REQUIRED", "Une note de relecture est requise pour rejeter un article.")
	message.SetString(lang, "error.CATEGORY_NOT_EMPTY", "Cette catégorie contient encore des articles ou des sous-catégories.")
	message.SetString(lang, "error.COMMENT_BODY_EMPTY", "Le corps du commentaire est requis.")
	message.SetString(lang, "error.PLAN_UNKNOWN", "Formule d'abonnement inconnue.")
	message.SetString(lang, "error.SUBSCRIPTION_ACTIVE_EXISTS", "Vous avez déjà un abonnement actif.")
	message.SetString(lang, "error.SEARCH_QUERY_EMPTY", "Saisissez quelque chose à rechercher.")

	message.SetString(lang, "paywall.preview_notice", "Abonnez-vous pour continuer la lecture.")
}
