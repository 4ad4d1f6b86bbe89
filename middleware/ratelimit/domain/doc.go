// Package domain define contratos e tipos de domínio para admissão de requisições
// (rate limit por janela fixa ou token-bucket) e limite de concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
package domain
