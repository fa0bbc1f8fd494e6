package taxonomy

// DefaultExpenses is the shipped expense taxonomy, one category per line,
// nested by tab indentation.
const DefaultExpenses = `Housing
	Rent
	Mortgage
	Utilities
		Electricity
		Gas
		Water
	Internet & Phone
Transport
	Fuel
	Public Transport
	Car Maintenance
	Parking
Groceries
Dining
	Restaurants
	Takeout
Health
	Insurance
	Pharmacy
	Doctor
Leisure
	Subscriptions
	Travel
	Sports
Shopping
	Clothing
	Electronics
Finance
	Bank Fees
	Loan Payments
Family
	Childcare
	Education
	Pets
`

// DefaultRevenue is the shipped revenue taxonomy.
const DefaultRevenue = `Salary
Benefits
Investments
	Dividends
	Interest
Refunds
Gifts
Other Income
`
