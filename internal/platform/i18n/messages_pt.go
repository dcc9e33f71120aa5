package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.BrazilianPortuguese

	message.SetString(lang, "error.UNKNOWN", "Algo deu errado. Tente novamente.")
	message.SetString(lang, "error.NOT_FOUND", "O recurso solicitado não foi encontrado.")
	message.SetString(lang, "error.ALREADY_EXISTS", "Já existe um recurso com esses dados.")
	message.SetString(lang, "error.INVALID_ARGUMENT", "A requisição está malformada.")
	message.SetString(lang, "error.PERMISSION_DENIED", "Você não tem permissão para executar esta ação.")
	message.SetString(lang, "error.AUTHENTICATION_MISSING", "Entre para continuar.")
	message.SetString(lang, "error.TOKEN_INVALID", "Sua sessão é inválida. Entre novamente.")
	message.SetString(lang, "error.TOKEN_EXPIRED", "Sua sessão expirou. Entre novamente.")
	message.SetString(lang, "error.USER_BAD_CREDENTIALS", "Email ou senha incorretos.")
	message.SetString(lang, "error.USER_EMAIL_TAKEN", "Já existe uma conta com este email.")
	message.SetString(lang, "error.USER_PASSWORD_TOO_SHORT", "A senha deve ter pelo menos 8 caracteres.")
	message.SetString(lang, "error.USER_LAST_ADMIN", "O último administrador não pode ser rebaixado.")
	message.SetString(lang, "error.ARTICLE_TITLE_EMPTY", "O título do artigo é obrigatório.")
	message.SetString(lang, "error.ARTICLE_BLOCKS_EMPTY", "Um artigo precisa de pelo menos um bloco de conteúdo.")
	message.SetString(lang, "error.ARTICLE_INVALID_BLOCK", "Um dos blocos de conteúdo é inválido.")
	message.SetString(lang, "error.ARTICLE_CATEGORY_MISSING", "Escolha uma categoria antes de publicar.")
	message.SetString(lang, "error.ARTICLE_INVALID_STATUS_TRANSITION", "Este artigo não pode mudar para esse estado.")
	message.SetString(lang, "error.ARTICLE_REVIEW_NOTE_REQUIRED", "Uma nota de revisão é obrigatória para rejeitar um artigo.")
	message.SetString(lang, "error.CATEGORY_NOT_EMPTY", "Esta categoria ainda tem artigos ou subcategorias.")
	message.SetString(lang, "error.COMMENT_BODY_EMPTY", "O corpo do comentário é obrigatório.")
	message.SetString(lang, "error.PLAN_UNKNOWN", "Plano de assinatura desconhecido.")
	message.SetString(lang, "error.SUBSCRIPTION_ACTIVE_EXISTS", "Você já tem uma assinatura ativa.")
	message.SetString(lang, "error.SEARCH_QUERY_EMPTY", "Digite algo para pesquisar.")

	message.SetString(lang, "paywall.preview_notice", "Assine para continuar lendo esta matéria.")
}
