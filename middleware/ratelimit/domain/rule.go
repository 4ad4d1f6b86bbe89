package domain

import "strings"

// Rule associa um prefixo de rota (e opcionalmente métodos) a uma quota.
// Os contadores de cada regra são independentes: a chave efetiva é "regra:cliente".
type Rule struct {
	Name       string
	PathPrefix string
	Methods    []string
	Quota      Quota
	Algorithm  Algorithm
}

// Matches indica se a regra se aplica ao método/caminho.
func (r Rule) Matches(method, path string) bool {
	if !PathHasPrefix(path, r.PathPrefix) {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// PathHasPrefix casa prefixo por segmento: "/api" cobre "/api" e "/api/x",
// mas não "/apiary". Prefixo terminado em "/" casa tudo que começa com ele.
func PathHasPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}

// ScopedKey é a chave usada no limiter para um cliente dentro da regra.
func (r Rule) ScopedKey(client Key) Key {
	return Key(r.Name + ":" + string(client))
}

// RuleSet é uma lista ordenada; a primeira regra que casar vence.
type RuleSet []Rule

func (rs RuleSet) Match(method, path string) (Rule, bool) {
	for _, r := range rs {
		if r.Matches(method, path) {
			return r, true
		}
	}
	return Rule{}, false
}
