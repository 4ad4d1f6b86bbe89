package auth

import (
	"crypto/subtle"
	"strings"
)

const bearerScheme = "Bearer"

// Verify compara o token enviado com o segredo configurado.
//
// Vazio de qualquer lado nunca autentica. Tamanhos diferentes retornam false antes
// da comparação: isso vaza o tamanho do segredo pelo tempo de resposta, mas não o
// conteúdo. Com tamanhos iguais o tempo não depende da posição da primeira diferença.
func Verify(provided, expected string) bool {
	if provided == "" || expected == "" || len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// BearerToken extrai o token de um header Authorization ("Bearer <token>").
// Header ausente, outro esquema ou token vazio retornam "".
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}
