// Package auth protege os prefixes administrativos do storefront com um bearer token
// estático, comparado em tempo constante, e limita tentativas falhas por cliente.
package auth
