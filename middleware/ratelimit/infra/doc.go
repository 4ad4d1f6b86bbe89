// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - FixedWindow: janela fixa por chave em memória, limitada por LRU
//   - RedisWindow: janela fixa compartilhada via script Lua no Redis
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore: contadores de decisões
package infra
