package entities

import "sort"

// CategoryOther is assigned to subcategories outside the taxonomy.
const CategoryOther = "Outros"

// Category groups related subcategories under one profile type.
type Category struct {
	Name          string      `json:"name"`
	ProfileType   ProfileType `json:"profile_type"`
	SubCategories []string    `json:"sub_categories"`
}

var taxonomy = []Category{
	{Name: "Construção e Reformas", ProfileType: ProfileTypeProfessional, SubCategories: []string{
		"Pedreiro", "Pintor", "Eletricista", "Encanador / Bombeiro hidráulico", "Gesseiro", "Azulejista",
		"Marceneiro", "Carpinteiro", "Serralheiro", "Calheiro", "Montador de Móveis",
	}},
	{Name: "Serviços Domésticos", ProfileType: ProfileTypeProfessional, SubCategories: []string{
		"Diarista", "Faxineira", "Passadeira", "Cozinheira(o)", "Babá", "Cuidador(a) de idosos",
	}},
	{Name: "Beleza e Estética", ProfileType: ProfileTypeProfessional, SubCategories: []string{
		"Manicure", "Pedicure", "Cabeleireiro(a)", "Barbeiro", "Maquiadora", "Esteticista", "Depiladora",
	}},
	{Name: "Profissionais Liberais", ProfileType: ProfileTypeProfessional, SubCategories: []string{
		"Advogado", "Engenheiro", "Arquiteto", "Contador", "Veterinário", "Nutricionista", "Psicólogo",
	}},
	{Name: "Veículos e Transporte", ProfileType: ProfileTypeProfessional, SubCategories: []string{
		"Mecânico", "Elétrica Automotiva", "Funileiro", "Guincho / Reboque", "Lavador de carro", "Borracheiro",
	}},
	{Name: "Jardim e Área Externa", ProfileType: ProfileTypeProfessional, SubCategories: []string{
		"Jardineiro", "Paisagista", "Podador de árvores", "Piscineiro",
	}},
	{Name: "Instalação e Manutenção", ProfileType: ProfileTypeProfessional, SubCategories: []string{
		"Técnico em ar-condicionado", "Técnico em refrigeração", "Instalador de TV / antena", "Técnico em internet e redes",
	}},
	{Name: "Tecnologia", ProfileType: ProfileTypeProfessional, SubCategories: []string{
		"Técnico em informática", "Técnico em celulares", "Suporte de TI", "Desenvolvedor",
	}},
	{Name: "Outros Serviços", ProfileType: ProfileTypeProfessional, SubCategories: []string{
		"Vidraceiro", "Estofador", "Dedetizador", "Chaveiro", "Fotógrafo",
	}},
	{Name: "Alimentação", ProfileType: ProfileTypeCommerce, SubCategories: []string{
		"Mercado", "Supermercado", "Padaria", "Açougue", "Hortifruti", "Mercearia",
		"Distribuidora de bebidas", "Restaurante", "Lanchonete", "Pizzaria",
	}},
	{Name: "Saúde e Bem-estar", ProfileType: ProfileTypeCommerce, SubCategories: []string{
		"Farmácia", "Clínica", "Laboratório", "Academia", "Pet shop",
	}},
	{Name: "Casa e Construção", ProfileType: ProfileTypeCommerce, SubCategories: []string{
		"Loja de material de construção", "Loja elétrica", "Loja hidráulica", "Loja de tintas", "Madeireira",
	}},
	{Name: "Moda e Beleza", ProfileType: ProfileTypeCommerce, SubCategories: []string{
		"Salão de beleza", "Barbearia", "Loja de roupas", "Loja de calçados", "Perfumaria",
	}},
	{Name: "Serviços em Geral", ProfileType: ProfileTypeCommerce, SubCategories: []string{
		"Oficina mecânica", "Lava-jato", "Gráfica", "Papelaria",
	}},
}

var categoryBySub = func() map[string]string {
	m := make(map[string]string)
	for _, c := range taxonomy {
		for _, sub := range c.SubCategories {
			m[sub] = c.Name
		}
	}
	return m
}()

// CategoryFor derives the category of a subcategory.
func CategoryFor(subCategory string) string {
	if c, ok := categoryBySub[subCategory]; ok {
		return c
	}
	return CategoryOther
}

// Categories returns the taxonomy, optionally restricted to one profile type.
func Categories(profileType ProfileType) []Category {
	out := make([]Category, 0, len(taxonomy))
	for _, c := range taxonomy {
		if profileType != "" && c.ProfileType != profileType {
			continue
		}
		c.SubCategories = append([]string(nil), c.SubCategories...)
		out = append(out, c)
	}
	return out
}

// AllSubCategories lists every known subcategory in alphabetical order.
func AllSubCategories() []string {
	out := make([]string, 0, len(categoryBySub))
	for sub := range categoryBySub {
		out = append(out, sub)
	}
	sort.Strings(out)
	return out
}
