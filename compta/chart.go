/*
chart.go - CGNC account numbers and the default chart of accounts

PURPOSE:
  Central place for the fixed chart-of-accounts mapping used by the poster.
  Account numbers follow the Code Général de Normalisation Comptable:
  class 3 receivables, class 4 payables and state accounts, class 5 treasury,
  class 6 expenses, class 7 revenue.

SEE ALSO:
  - posting/poster.go: Uses these accounts to build pieces
*/
package compta

// Accounts the poster targets. These are CGNC detail account numbers; the
// store seeds them via DefaultChart.
const (
	AcctCustomers     = "3421" // Clients
	AcctSuppliers     = "4411" // Fournisseurs
	AcctSales         = "7111" // Ventes de marchandises
	AcctPurchases     = "6111" // Achats de marchandises
	AcctVATCollected  = "4455" // État, TVA facturée
	AcctVATDeferred   = "4458" // État, TVA facturée non exigible (régime encaissement)
	AcctVATDeductible = "3455" // État, TVA récupérable
	AcctBank          = "5141" // Banques
	AcctCash          = "5161" // Caisses
)

// VATRegime selects when collected VAT becomes due: at invoice date
// (accrual, "débit") or at payment date (cash basis, "encaissement").
type VATRegime string

const (
	RegimeAccrual   VATRegime = "accrual"
	RegimeCashBasis VATRegime = "cash"
)

// TreasuryAccount maps a payment mode to the treasury account debited or
// credited when the payment is posted.
func TreasuryAccount(mode PaymentMode) string {
	if mode == PayCash {
		return AcctCash
	}
	return AcctBank
}

// DefaultChart returns the seed chart of accounts. All entries are active
// detail accounts; non-detail roll-up accounts are not needed by the core.
func DefaultChart() []Account {
	mk := func(number, label string, typ AccountType) Account {
		return Account{
			ID:              number,
			Number:          number,
			Label:           label,
			Class:           int(number[0] - '0'),
			Type:            typ,
			IsDetailAccount: true,
			IsActive:        true,
		}
	}
	return []Account{
		mk(AcctCustomers, "Clients", AccountAsset),
		mk(AcctSuppliers, "Fournisseurs", AccountLiability),
		mk(AcctSales, "Ventes de marchandises", AccountRevenue),
		mk(AcctPurchases, "Achats de marchandises", AccountExpense),
		mk(AcctVATCollected, "État, TVA facturée", AccountLiability),
		mk(AcctVATDeferred, "État, TVA facturée non exigible", AccountLiability),
		mk(AcctVATDeductible, "État, TVA récupérable", AccountAsset),
		mk(AcctBank, "Banques", AccountTreasury),
		mk(AcctCash, "Caisses", AccountTreasury),
	}
}
