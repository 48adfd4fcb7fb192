package extractor

import "github.com/editais/ingestor/models"

// systemOwnedFields are never overwritten by LLM output; Pipeline.Run
// sets link from the source URL at finalization time.
var systemOwnedFields = map[string]bool{
	"link": true,
	"id":   true,
	"uuid": true,
}

// Merge folds new chunk output into the accumulator in place, per the
// merge rule: empty/null new values are discarded, empty accumulator
// values are replaced, two strings keep the longer, two numbers keep
// whichever is non-zero preferring the new one when the accumulator
// is zero.
func Merge(accumulator map[string]interface{}, next map[string]interface{}) {
	for key, newVal := range next {
		if systemOwnedFields[key] {
			continue
		}
		if isEmpty(newVal) {
			continue
		}

		oldVal, exists := accumulator[key]
		if !exists || isEmpty(oldVal) {
			accumulator[key] = newVal
			continue
		}

		newStr, newIsStr := newVal.(string)
		oldStr, oldIsStr := oldVal.(string)
		if newIsStr && oldIsStr {
			if len(newStr) > len(oldStr) {
				accumulator[key] = newVal
			}
			continue
		}

		newNum, newIsNum := asFloat(newVal)
		oldNum, oldIsNum := asFloat(oldVal)
		if newIsNum && oldIsNum && oldNum == 0 {
			_ = newNum
			accumulator[key] = newVal
			continue
		}
		// Both populated and not a longer-string/zero-number case:
		// keep the accumulator's existing value.
	}
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == "" || t == "null"
	case float64:
		return t == 0
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// ToEditalFields converts the merged accumulator map into the typed
// 24-field schema, leaving unset fields nil.
func ToEditalFields(acc map[string]interface{}) *models.EditalFields {
	f := &models.EditalFields{}
	f.ApelidoEdital = strPtr(acc, "apelido_edital")
	f.Financiador1 = strPtr(acc, "financiador_1")
	f.Financiador2 = strPtr(acc, "financiador_2")
	f.AreaFoco = strPtr(acc, "area_foco")
	f.TipoProponente = strPtr(acc, "tipo_proponente")
	f.EmpresasQuePodemSubmeter = strPtr(acc, "empresas_que_podem_submeter")
	f.DuracaoMinMeses = intPtr(acc, "duracao_min_meses")
	f.DuracaoMaxMeses = intPtr(acc, "duracao_max_meses")
	f.ValorMinReais = floatPtr(acc, "valor_min_R$")
	f.ValorMaxReais = floatPtr(acc, "valor_max_R$")
	f.TipoRecurso = strPtr(acc, "tipo_recurso")
	f.RecepcaoRecursos = strPtr(acc, "recepcao_recursos")
	f.Custeio = boolPtr(acc, "custeio")
	f.Capital = boolPtr(acc, "capital")
	f.ContrapartidaMinPct = floatPtr(acc, "contrapartida_min_%")
	f.ContrapartidaMaxPct = floatPtr(acc, "contrapartida_max_%")
	f.TipoContrapartida = strPtr(acc, "tipo_contrapartida")
	f.DataInicialSubmissao = strPtr(acc, "data_inicial_submissao")
	f.DataFinalSubmissao = strPtr(acc, "data_final_submissao")
	f.DataResultado = strPtr(acc, "data_resultado")
	f.DescricaoCompleta = strPtr(acc, "descricao_completa")
	f.Origem = strPtr(acc, "origem")
	f.Observacoes = strPtr(acc, "observacoes")
	return f
}

func strPtr(m map[string]interface{}, key string) *string {
	v, ok := m[key]
	if !ok || isEmpty(v) {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func floatPtr(m map[string]interface{}, key string) *float64 {
	v, ok := m[key]
	if !ok || isEmpty(v) {
		return nil
	}
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func intPtr(m map[string]interface{}, key string) *int {
	f := floatPtr(m, key)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

func boolPtr(m map[string]interface{}, key string) *bool {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}
