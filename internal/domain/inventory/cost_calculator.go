package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado tras una entrada de stock.
// nuevo = (stock * costo + entrada * costoEntrada) / (stock + entrada)
// Con stock previo no positivo el costo de la entrada reemplaza al anterior.
func WeightedAverageCost(stock, cost, incoming, incomingCost decimal.Decimal) decimal.Decimal {
	if !stock.IsPositive() {
		return incomingCost.Round(4)
	}
	sum := stock.Add(incoming)
	if !sum.IsPositive() {
		return decimal.Zero
	}
	num := stock.Mul(cost).Add(incoming.Mul(incomingCost))
	return num.DivRound(sum, 4)
}
