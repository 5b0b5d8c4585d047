package catalog

import "github.com/noah-isme/ad-checkout/internal/pricing"

// DefaultSeed returns the reference data set: the three job ad products,
// two test products and the customers whose negotiated deals exercise every
// pricing path.
func DefaultSeed() Seed {
	return Seed{
		Customers: []Customer{
			{ID: 1, Name: "SecondBite"},
			{ID: 2, Name: "Axil Coffee Roasters"},
			{ID: 3, Name: "MYER"},
			{ID: 4, Name: "default"},
			{ID: 5, Name: "TEST"},
			{ID: 6, Name: "TEST6"},
			{ID: 7, Name: "TEST7"},
			{ID: 8, Name: "TEST8"},
		},
		Products: []Product{
			{Code: "classic", Name: "Classic Ad", Description: "Offers the most basic level of advertisement", Price: 269.99},
			{Code: "standout", Name: "Stand out Ad", Description: "Allows advertisers to use a company logo and use a longer presentation text", Price: 322.99},
			{Code: "premium", Name: "Premium Ad", Description: "Same benefits as Standout Ad, but also puts the advertisement at the top of the results, allowing higher visibility", Price: 394.99},
			{Code: "test1", Name: "Test1", Description: "Blah Blah Blah", Price: 394.99},
			{Code: "test2", Name: "Test2", Description: "Blah Blah Blah", Price: 394.99},
		},
		PriceDeals: []pricing.PriceOverrideDeal{
			{CustomerID: 2, ProductCode: "standout", Price: 299.99},
			{CustomerID: 3, ProductCode: "premium", Price: 389.99},

			{CustomerID: 5, ProductCode: "standout", Price: 299.99},
			{CustomerID: 5, ProductCode: "test1", Price: 150},
			{CustomerID: 5, ProductCode: "test1", Price: 200},

			{CustomerID: 6, ProductCode: "test1", Price: 150},
			{CustomerID: 6, ProductCode: "test1", Price: 200},

			{CustomerID: 7, ProductCode: "test1", Price: 150, TriggerSize: 3},
			{CustomerID: 7, ProductCode: "test1", Price: 200, TriggerSize: 2},

			{CustomerID: 8, ProductCode: "test1", Price: 150, TriggerSize: 3},
		},
		BulkDeals: []pricing.BulkDeal{
			{CustomerID: 1, ProductCode: "classic", PurchaseSize: 3, CostSize: 2},
			{CustomerID: 1, ProductCode: "classic", PurchaseSize: 30, CostSize: 13},
			{CustomerID: 3, ProductCode: "standout", PurchaseSize: 5, CostSize: 4},

			{CustomerID: 5, ProductCode: "classic", PurchaseSize: 6, CostSize: 4},
			{CustomerID: 5, ProductCode: "classic", PurchaseSize: 20, CostSize: 12},
			{CustomerID: 5, ProductCode: "classic", PurchaseSize: 30, CostSize: 15},
			{CustomerID: 5, ProductCode: "premium", PurchaseSize: 6, CostSize: 4},
			{CustomerID: 5, ProductCode: "premium", PurchaseSize: 20, CostSize: 12},
			{CustomerID: 5, ProductCode: "premium", PurchaseSize: 30, CostSize: 15},
			{CustomerID: 5, ProductCode: "test1", PurchaseSize: 2, CostSize: 1},
			{CustomerID: 5, ProductCode: "test2", PurchaseSize: 2, CostSize: 1},

			{CustomerID: 6, ProductCode: "test1", PurchaseSize: 2, CostSize: 1},
			{CustomerID: 6, ProductCode: "test2", PurchaseSize: 5, CostSize: 2},
		},
	}
}

// Default returns a Memory catalog over DefaultSeed.
func Default() *Memory {
	return MustMemory(DefaultSeed())
}
