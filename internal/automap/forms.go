package automap

import "sync"

// Built-in form names.
const (
	FormBudget         = "budget"
	FormBranchRegion   = "branch_region"
	FormCompanyProduct = "company_product"
	FormSales          = "sales"
	FormOutstanding    = "outstanding"
	FormCustomer       = "customer"
)

// Shared vocabularies. Order matters: earlier aliases win.
var (
	execNameAliases = []string{"executivename", "execname", "ename", "empname", "salesman"}
	execCodeAliases = []string{"executivecode", "execcode", "ecode", "empcode", "salesmancode"}
	branchAliases   = []string{"branch"}
	regionAliases   = []string{"region"}
	custCodeAliases = []string{"customercode", "custcode", "partycode", "slcode"}
	custNameAliases = []string{"customername", "custname", "partyname"}
)

// BuiltinTables returns the alias tables of the standard upload forms.
func BuiltinTables() []AliasTable {
	return []AliasTable{
		{
			Name:         FormBudget,
			Description:  "Budget upload (executive / customer budget sheet)",
			Normalizer:   NormalizerSimple,
			FilePatterns: []string{"*budget*"},
			Fields: []FieldAliases{
				{Field: "customer_col", Aliases: custCodeAliases, Required: true},
				{Field: "exec_code_col", Aliases: execCodeAliases},
				{Field: "exec_name_col", Aliases: execNameAliases, Required: true},
				{Field: "branch_col", Aliases: branchAliases, Required: true},
				{Field: "region_col", Aliases: regionAliases},
				{Field: "cust_name_col", Aliases: custNameAliases},
			},
		},
		{
			Name:         FormBranchRegion,
			Description:  "Executive to branch/region master",
			Normalizer:   NormalizerSimple,
			FilePatterns: []string{"*branch*", "*region*"},
			Fields: []FieldAliases{
				{Field: "exec_name_col", Aliases: execNameAliases, Required: true},
				{Field: "exec_code_col", Aliases: execCodeAliases},
				{Field: "branch_col", Aliases: branchAliases, Required: true},
				{Field: "region_col", Aliases: regionAliases},
			},
		},
		{
			Name:         FormCompanyProduct,
			Description:  "Company group to product group master",
			Normalizer:   NormalizerStrict,
			FilePatterns: []string{"*company*", "*product*"},
			Fields: []FieldAliases{
				{Field: "company_group_col", Aliases: []string{"companygroup", "compgroup", "company"}, Required: true},
				{Field: "product_group_col", Aliases: []string{"productgroup", "prodgroup", "product"}, Required: true},
			},
		},
		{
			Name:         FormSales,
			Description:  "Sales register",
			Normalizer:   NormalizerSimple,
			FilePatterns: []string{"*sales*"},
			Fields: []FieldAliases{
				{Field: "date", Aliases: []string{"billdate", "invoicedate", "date"}, Required: true},
				{Field: "exec_code", Aliases: execCodeAliases},
				{Field: "exec_name", Aliases: execNameAliases, Required: true},
				{Field: "branch", Aliases: branchAliases},
				{Field: "region", Aliases: regionAliases},
				{Field: "customer_code", Aliases: custCodeAliases},
				{Field: "customer_name", Aliases: custNameAliases},
				{Field: "company_group", Aliases: []string{"companygroup", "compgroup", "company"}},
				{Field: "product_group", Aliases: []string{"productgroup", "prodgroup", "product"}},
				{Field: "quantity", Aliases: []string{"actualquantity", "quantity", "qty"}},
				{Field: "net_value", Aliases: []string{"netvalue", "value", "amount"}, Required: true},
			},
		},
		{
			Name:         FormOutstanding,
			Description:  "Outstanding dues (OS) statement",
			Normalizer:   NormalizerStrict,
			FilePatterns: []string{"os_*", "*_os.*", "*outstanding*", "*dues*"},
			Fields: []FieldAliases{
				{Field: "due_date", Aliases: []string{"duedate", "due"}, Required: true},
				{Field: "doc_date", Aliases: []string{"documentdate", "docdate", "billdate"}},
				{Field: "exec_code", Aliases: execCodeAliases},
				{Field: "exec_name", Aliases: execNameAliases, Required: true},
				{Field: "branch", Aliases: branchAliases},
				{Field: "region", Aliases: regionAliases},
				{Field: "customer_code", Aliases: custCodeAliases},
				{Field: "customer_name", Aliases: custNameAliases},
				{Field: "net_value", Aliases: []string{"netvalue", "balance", "outstanding", "amount"}, Required: true},
			},
		},
		{
			Name:         FormCustomer,
			Description:  "Billed customer list",
			Normalizer:   NormalizerSimple,
			FilePatterns: []string{"*customer*", "*nbc*"},
			Fields: []FieldAliases{
				{Field: "customer_code", Aliases: custCodeAliases, Required: true},
				{Field: "customer_name", Aliases: custNameAliases},
				{Field: "exec_code", Aliases: execCodeAliases},
				{Field: "exec_name", Aliases: execNameAliases, Required: true},
				{Field: "branch", Aliases: branchAliases},
				{Field: "region", Aliases: regionAliases},
			},
		},
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds the alias tables known to the application, in registration
// order.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]AliasTable
	order  []string
}

// NewRegistry creates a registry from tables. A table whose name is already
// registered replaces the earlier one and keeps its position.
func NewRegistry(tables ...AliasTable) *Registry {
	r := &Registry{tables: make(map[string]AliasTable)}
	for _, t := range tables {
		r.Register(t)
	}
	return r
}

// DefaultRegistry returns a registry seeded with the built-in tables.
func DefaultRegistry() *Registry {
	return NewRegistry(BuiltinTables()...)
}

// Register adds or replaces a table.
func (r *Registry) Register(t AliasTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tables[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tables[t.Name] = t
}

// Lookup returns the table registered under name.
func (r *Registry) Lookup(name string) (AliasTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// Tables returns every table in registration order.
func (r *Registry) Tables() []AliasTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AliasTable, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tables[name])
	}
	return out
}

// MatchFile returns the first table (registration order) whose file patterns
// match fileName.
func (r *Registry) MatchFile(fileName string) (AliasTable, bool) {
	for _, t := range r.Tables() {
		if t.MatchesFile(fileName) {
			return t, true
		}
	}
	return AliasTable{}, false
}
