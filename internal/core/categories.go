package core

// Category suggestions offered by the entry form. They are hints only;
// any non-empty string is accepted as a category.
var (
	expenseCategories = []string{
		"Food", "Groceries", "Transportation", "Fuel", "Housing", "Utilities",
		"Health Insurance", "Car Insurance", "Healthcare", "Entertainment",
		"Shopping", "Education", "Memberships", "Investments", "Loan",
		"Gift/Donations", "Travel", "Other",
	}
	incomeCategories = []string{
		"Salary", "Freelance", "Investments", "Business", "Other",
	}
)

// SuggestedCategories returns the suggestion list for a transaction type.
func SuggestedCategories(t TransactionType) []string {
	var src []string
	switch t {
	case Income:
		src = incomeCategories
	case Expense:
		src = expenseCategories
	}
	return append([]string(nil), src...)
}
