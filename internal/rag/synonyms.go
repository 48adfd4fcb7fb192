package rag

// synonyms is the small static Portuguese synonym map used to expand
// short, ambiguous queries before retrieval, per spec.md §4.8 step 2.
var synonyms = map[string][]string{
	"prazo":       {"data limite", "vencimento"},
	"submissao":   {"envio", "inscricao"},
	"valor":       {"montante", "quantia"},
	"financiamento": {"recurso", "fomento"},
	"requisito":   {"exigencia", "condicao"},
	"documento":   {"anexo", "formulario"},
	"candidato":   {"proponente", "inscrito"},
	"resultado":   {"classificacao", "selecao"},
	"contato":     {"email", "telefone"},
	"duracao":     {"periodo", "vigencia"},
	"area":        {"tema", "linha"},
	"quando":      {"data", "prazo"},
	"quanto":      {"valor", "montante"},
	"cronograma":  {"calendario", "etapas"},
	"etapa":       {"fase", "estagio"},
	"publico":     {"elegivel", "destinatario"},
	"inscricao":   {"submissao", "cadastro"},
	"bolsa":       {"auxilio", "subsidio"},
	"financiador": {"agencia", "orgao"},
	"edital":      {"chamada", "aviso"},
}
