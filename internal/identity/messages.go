package identity

import "custodia/internal/backend/authprovider"

// FallbackMessage is shown for any provider code without a dedicated message.
const FallbackMessage = "Erro ao autenticar. Tente novamente"

var authMessages = map[string]string{
	authprovider.CodeInvalidEmail:         "Email inválido",
	authprovider.CodeUserDisabled:         "Usuário desativado",
	authprovider.CodeUserNotFound:         "Usuário não encontrado",
	authprovider.CodeWrongPassword:        "Senha incorreta",
	authprovider.CodeEmailAlreadyInUse:    "Este email já está em uso",
	authprovider.CodeWeakPassword:         "A senha deve ter pelo menos 6 caracteres",
	authprovider.CodeNetworkRequestFailed: "Erro de conexão. Verifique sua internet",
	authprovider.CodeTooManyRequests:      "Muitas tentativas. Tente novamente mais tarde",
}

// MessageForCode translates a provider error code into user-facing text.
func MessageForCode(code string) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	return FallbackMessage
}
