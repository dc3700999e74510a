package reportstore

// Bucket groups categories for the summary breakdown.
type Bucket string

const (
	BucketBudget       Bucket = "budget"
	BucketODCollection Bucket = "od_collection"
	BucketProduct      Bucket = "product"
	BucketCustomer     Bucket = "customer"
	BucketODTarget     Bucket = "od_target"
)

// Known categories.
const (
	CategoryBudget                 = "budget_results"
	CategoryBranchBudget           = "branch_budget_results"
	CategoryODVs                   = "od_vs_results"
	CategoryBranchODVs             = "branch_od_vs_results"
	CategoryProduct                = "product_results"
	CategoryBranchProduct          = "branch_product_results"
	CategoryCustomers              = "customers_results"
	CategoryBranchNBC              = "branch_nbc_results"
	CategoryOD                     = "od_results"
	CategoryBranchODResultsPrev    = "branch_od_results_previous"
	CategoryBranchODResultsCurrent = "branch_od_results_current"
)

var categoryBuckets = map[string]Bucket{
	CategoryBudget:                 BucketBudget,
	CategoryBranchBudget:           BucketBudget,
	CategoryODVs:                   BucketODCollection,
	CategoryBranchODVs:             BucketODCollection,
	CategoryProduct:                BucketProduct,
	CategoryBranchProduct:          BucketProduct,
	CategoryCustomers:              BucketCustomer,
	CategoryBranchNBC:              BucketCustomer,
	CategoryOD:                     BucketODTarget,
	CategoryBranchODResultsPrev:    BucketODTarget,
	CategoryBranchODResultsCurrent: BucketODTarget,
}

// BucketFor returns the bucket of a category. Unknown categories belong to
// no bucket.
func BucketFor(category string) (Bucket, bool) {
	b, ok := categoryBuckets[category]
	return b, ok
}

// BucketCounts is the per-bucket report breakdown shown next to the total.
type BucketCounts struct {
	Budget       int `json:"budget"`
	ODCollection int `json:"od_collection"`
	Product      int `json:"product"`
	Customer     int `json:"customer"`
	ODTarget     int `json:"od_target"`
}

// Total sums every bucket.
func (b BucketCounts) Total() int {
	return b.Budget + b.ODCollection + b.Product + b.Customer + b.ODTarget
}

// Bucketize folds per-category counts into bucket counts.
func Bucketize(counts map[string]int) BucketCounts {
	var out BucketCounts
	for category, n := range counts {
		bucket, ok := BucketFor(category)
		if !ok {
			continue
		}
		switch bucket {
		case BucketBudget:
			out.Budget += n
		case BucketODCollection:
			out.ODCollection += n
		case BucketProduct:
			out.Product += n
		case BucketCustomer:
			out.Customer += n
		case BucketODTarget:
			out.ODTarget += n
		}
	}
	return out
}
