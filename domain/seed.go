package domain

import "github.com/shopspring/decimal"

// Sample records written on the very first launch so a new installation has
// something to show.

func SampleProperties() []Property {
	return []Property{
		{ID: "prop-1", Name: "Fazenda Boa Vista", Location: "Ribeirão Preto, SP", Area: decimal.NewFromInt(120), SoilType: "Latossolo", Owner: "João Silva"},
		{ID: "prop-2", Name: "Sítio Esperança", Location: "Londrina, PR", Area: decimal.NewFromInt(45), SoilType: "Argiloso", Owner: "João Silva"},
	}
}

func SampleCrops() []Crop {
	return []Crop{
		{ID: "crop-1", Name: "Soja", Variety: "BRS 284", Area: decimal.NewFromInt(80), PlantingDate: "15-10-2024", ExpectedHarvest: "20-02-2025", Status: CropGrowing, PropertyID: "prop-1"},
		{ID: "crop-2", Name: "Milho", Variety: "AG 1051", Area: decimal.NewFromInt(30), PlantingDate: "01-09-2024", ExpectedHarvest: "15-01-2025", Status: CropGrowing, PropertyID: "prop-2"},
		{ID: "crop-3", Name: "Café", Variety: "Catuaí", Area: decimal.NewFromInt(15), PlantingDate: "10-03-2023", Status: CropPlanted, PropertyID: "prop-2"},
	}
}

func SampleTransactions() []Transaction {
	return []Transaction{
		{ID: "tx-1", Type: TransactionIncome, Category: "Venda de grãos", Description: "Venda de soja safra 23/24", Amount: decimal.RequireFromString("85000.00"), Date: "15-03-2024", PropertyID: "prop-1", CropID: "crop-1", Status: TransactionPaid},
		{ID: "tx-2", Type: TransactionExpense, Category: "Insumos", Description: "Fertilizante NPK", Amount: decimal.RequireFromString("12500.50"), Date: "02-09-2024", PropertyID: "prop-1", Status: TransactionPaid},
		{ID: "tx-3", Type: TransactionExpense, Category: "Combustível", Description: "Diesel para maquinário", Amount: decimal.RequireFromString("3200.00"), Date: "20-09-2024", PropertyID: "prop-2", Status: TransactionPending},
		{ID: "tx-4", Type: TransactionExpense, Category: "Mão de obra", Description: "Diárias de colheita", Amount: decimal.RequireFromString("4800.00"), Date: "05-10-2024", PropertyID: "prop-2", CropID: "crop-2", Status: TransactionPaid},
	}
}
