// Package ratelimit fornece adapters HTTP (net/http) para o guard de admissão
// (janela fixa por cliente e por regra) e para o limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela fixa, token bucket, Redis, semáforo)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo no guard:
//
//  1. Escolhe a regra pelo método + prefixo do caminho (sem regra, passa direto)
//  2. Extrai a chave do cliente (header/XFF/RemoteAddr)
//  3. Chama a camada application para obter a decisão
//  4. Se bloqueado, responde 429 com Retry-After (503 se o limiter falhou e fail_open=false)
//  5. Se permitido, chama o próximo handler (ex: reverse proxy para o storefront)
//
// A configuração vem de internal/config (chaves rate_limit.*).
package ratelimit
