// Package schema declares datasets: where a workbook lives, which source
// headers map to which canonical columns, which columns a row must carry to
// survive normalization, and which bucket set the dashboard uses. Dataset
// variants (per-salesperson boards, the due-soon board) are instances of
// the same engine with a different descriptor, never copies.
package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"recebiveis/internal"
)

type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeDate    ColumnType = "date"
	TypeNumber  ColumnType = "number"
	TypeInteger ColumnType = "integer"
	TypeMonth   ColumnType = "month"
)

// Canonical column names.
const (
	ColEntity        = "entity"
	ColSalesperson   = "salesperson"
	ColCategory      = "category"
	ColDocumentID    = "document_id"
	ColArticle       = "article"
	ColIssueDate     = "issue_date"
	ColDueDate       = "due_date"
	ColDaysToDue     = "days_to_due"
	ColPendingAmount = "pending_amount"
	ColNetValue      = "net_value"
	ColQuantity      = "quantity"
	ColYear          = "year"
	ColMonth         = "month"
)

type ColumnSpec struct {
	Name     string     `yaml:"name"`
	Type     ColumnType `yaml:"type"`
	Synonyms []string   `yaml:"synonyms"`
	Required bool       `yaml:"required"`
}

type Dataset struct {
	Name        string       `yaml:"name"`
	SourceURI   string       `yaml:"source_uri"`
	Sheet       string       `yaml:"sheet"`
	AuthToken   string       `yaml:"auth_token"`
	Columns     []ColumnSpec `yaml:"columns"`
	BucketSet   string       `yaml:"bucket_set"`
	DateField   string       `yaml:"date_field"`
	Description string       `yaml:"description"`
}

// Resolve maps a trimmed source header to its canonical column, if any.
// Matching is case-insensitive on the trimmed header.
func (d Dataset) Resolve(header string) (ColumnSpec, bool) {
	needle := strings.ToLower(strings.TrimSpace(header))
	for _, col := range d.Columns {
		if strings.ToLower(col.Name) == needle {
			return col, true
		}
		for _, syn := range col.Synonyms {
			if strings.ToLower(strings.TrimSpace(syn)) == needle {
				return col, true
			}
		}
	}
	return ColumnSpec{}, false
}

func (d Dataset) Column(name string) (ColumnSpec, bool) {
	for _, col := range d.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnSpec{}, false
}

func (d Dataset) RequiredColumns() []string {
	out := make([]string, 0, len(d.Columns))
	for _, col := range d.Columns {
		if col.Required {
			out = append(out, col.Name)
		}
	}
	return out
}

type Registry struct {
	Datasets   []Dataset            `yaml:"datasets"`
	BucketSets []internal.BucketSet `yaml:"bucket_sets"`
}

func (r *Registry) Dataset(name string) (Dataset, bool) {
	for _, ds := range r.Datasets {
		if ds.Name == name {
			return ds, true
		}
	}
	return Dataset{}, false
}

func (r *Registry) BucketSet(name string) (internal.BucketSet, bool) {
	for _, set := range r.BucketSets {
		if set.Name == name {
			return set, true
		}
	}
	return internal.BucketSet{}, false
}

// Load reads a registry from a YAML file, falling back to the compiled-in
// defaults when path is empty. Datasets in the file replace same-named
// defaults; bucket sets merge the same way.
func Load(path string) (*Registry, error) {
	reg := Default()
	if strings.TrimSpace(path) == "" {
		return reg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read datasets file: %w", err)
	}
	var fileReg Registry
	if err := yaml.Unmarshal(raw, &fileReg); err != nil {
		return nil, fmt.Errorf("parse datasets file: %w", err)
	}

	for _, ds := range fileReg.Datasets {
		replaced := false
		for i := range reg.Datasets {
			if reg.Datasets[i].Name == ds.Name {
				reg.Datasets[i] = ds
				replaced = true
				break
			}
		}
		if !replaced {
			reg.Datasets = append(reg.Datasets, ds)
		}
	}
	for _, set := range fileReg.BucketSets {
		replaced := false
		for i := range reg.BucketSets {
			if reg.BucketSets[i].Name == set.Name {
				reg.BucketSets[i] = set
				replaced = true
				break
			}
		}
		if !replaced {
			reg.BucketSets = append(reg.BucketSets, set)
		}
	}

	for _, ds := range reg.Datasets {
		if _, ok := reg.BucketSet(ds.BucketSet); !ok {
			return nil, fmt.Errorf("dataset %s references unknown bucket set %s", ds.Name, ds.BucketSet)
		}
	}

	return reg, nil
}

// Default returns the built-in registry: the receivables aging dataset and
// the two bucket sets every dashboard variant shares.
func Default() *Registry {
	return &Registry{
		BucketSets: []internal.BucketSet{
			AgingBuckets(),
			UpcomingBuckets(),
		},
		Datasets: []Dataset{
			{
				Name:        "receivables",
				Sheet:       "Sheet1",
				BucketSet:   "aging",
				DateField:   ColDueDate,
				Description: "Pendentes por cliente e vencimento",
				Columns:     ReceivableColumns(),
			},
			{
				Name:        "sales",
				Sheet:       "Sheet1",
				BucketSet:   "aging",
				DateField:   ColIssueDate,
				Description: "Vendas por cliente, artigo e período",
				Columns:     SalesColumns(),
			},
		},
	}
}

func AgingBuckets() internal.BucketSet {
	return internal.BucketSet{
		Name: "aging",
		Buckets: []internal.Bucket{
			{Order: 1, Lo: 0, Hi: 15, Label: "0 a 15 dias"},
			{Order: 2, Lo: 15, Hi: 30, Label: "15 a 30 dias"},
			{Order: 3, Lo: 30, Hi: 60, Label: "30 a 60 dias"},
			{Order: 4, Lo: 60, Hi: 90, Label: "60 a 90 dias"},
			{Order: 5, Lo: 90, Hi: 365, Label: "90+ dias"},
		},
	}
}

func UpcomingBuckets() internal.BucketSet {
	return internal.BucketSet{
		Name: "upcoming",
		Buckets: []internal.Bucket{
			{Order: 1, Lo: -20, Hi: 0, Label: "Alerta 20 dias"},
			{Order: 2, Lo: -7, Hi: 0, Label: "Alerta 7 dias"},
		},
	}
}

func ReceivableColumns() []ColumnSpec {
	return []ColumnSpec{
		{Name: ColEntity, Type: TypeText, Required: true, Synonyms: []string{"Entidade", "Cliente", "Nome"}},
		{Name: ColSalesperson, Type: TypeText, Synonyms: []string{"Comercial", "Vendedor"}},
		{Name: ColCategory, Type: TypeText, Synonyms: []string{"Categoria"}},
		{Name: ColDocumentID, Type: TypeText, Synonyms: []string{"Documento", "Doc.", "Nº Doc"}},
		{Name: ColIssueDate, Type: TypeDate, Synonyms: []string{"Data Doc.", "Data Documento", "Data"}},
		{Name: ColDueDate, Type: TypeDate, Required: true, Synonyms: []string{"Data Venc.", "Data Vencimento", "Vencimento"}},
		{Name: ColDaysToDue, Type: TypeInteger, Synonyms: []string{"Dias"}},
		{Name: ColPendingAmount, Type: TypeNumber, Required: true, Synonyms: []string{"Valor Pendente", "Pendente", "Valor"}},
		{Name: ColYear, Type: TypeInteger, Synonyms: []string{"Ano"}},
		{Name: ColMonth, Type: TypeMonth, Synonyms: []string{"Mês", "Mes"}},
	}
}

func SalesColumns() []ColumnSpec {
	return []ColumnSpec{
		{Name: ColEntity, Type: TypeText, Required: true, Synonyms: []string{"Entidade", "Cliente", "Nome"}},
		{Name: ColSalesperson, Type: TypeText, Synonyms: []string{"Comercial", "Vendedor"}},
		{Name: ColCategory, Type: TypeText, Synonyms: []string{"Categoria"}},
		{Name: ColArticle, Type: TypeText, Synonyms: []string{"Artigo", "Produto"}},
		{Name: ColDocumentID, Type: TypeText, Synonyms: []string{"Documento", "Doc."}},
		{Name: ColIssueDate, Type: TypeDate, Required: true, Synonyms: []string{"Data", "Data Doc.", "Data Venda"}},
		{Name: ColQuantity, Type: TypeNumber, Synonyms: []string{"Qtd.", "Quantidade", "Qtd"}},
		{Name: ColNetValue, Type: TypeNumber, Synonyms: []string{"V. Líquido", "Valor liquido", "Valor Líquido"}},
		{Name: ColYear, Type: TypeInteger, Synonyms: []string{"Ano"}},
		{Name: ColMonth, Type: TypeMonth, Synonyms: []string{"Mês", "Mes"}},
	}
}
