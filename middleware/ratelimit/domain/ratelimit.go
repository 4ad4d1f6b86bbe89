package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Algorithm identifica a estratégia de contagem usada por uma regra.
type Algorithm string

const (
	AlgorithmFixedWindow Algorithm = "fixed_window"
	AlgorithmTokenBucket Algorithm = "token_bucket"
)

// Quota é o limite de uma regra: no máximo Limit requisições por Window.
type Quota struct {
	Limit  int
	Window time.Duration
}

// Valid indica se a quota admite alguma requisição.
func (q Quota) Valid() bool { return q.Limit > 0 && q.Window > 0 }

// Result é o que o limiter observou para uma chave em uma chamada.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt é quando a janela atual fecha (ou quando o próximo token fica disponível).
	ResetAt time.Time
}

// Limiter decide se uma ação é permitida agora para uma chave.
//
// A implementação pode ser janela fixa, token-bucket, etc. Implementações em memória
// nunca retornam erro; as de rede (Redis) podem retornar.
type Limiter interface {
	Hit(ctx context.Context, key Key, q Quota) (Result, error)
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
	// Err é preenchido quando o limiter falhou e a decisão veio da política de falha.
	Err error
}
