// migrate aplica el esquema de PostgreSQL y, opcionalmente, da de alta ítems desde un CSV.
//
// Uso: go run ./cmd/migrate [-seed items.csv] [-latin1]
// Columnas del CSV: name,category,unit,current_stock,min_stock,max_stock,reorder_point[,density]
// El stock inicial se registra como ajuste en el ledger. Los nombres existentes se omiten.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	seedPath := flag.String("seed", "", "CSV de ítems a dar de alta")
	latin1 := flag.Bool("latin1", false, "el CSV está en ISO-8859-1 (exportado desde Excel)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("aplicar esquema")
	}
	log.Info().Msg("esquema aplicado")

	if *seedPath == "" {
		return
	}
	f, err := os.Open(*seedPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *seedPath).Msg("abrir CSV")
	}
	defer f.Close()

	var r io.Reader = f
	if *latin1 {
		r = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	rows, err := readSeed(r)
	if err != nil {
		log.Fatal().Err(err).Msg("leer CSV")
	}

	itemRepo := postgres.NewInventoryItemRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	engine := inventory.NewAdjustStockUseCase(txRunner, itemRepo, nil, log)
	items := inventory.NewItemUseCase(txRunner, itemRepo, engine, log)

	var created, skipped int
	for _, in := range rows {
		if _, err := items.Create(ctx, in); err != nil {
			if errors.Is(err, domain.ErrDuplicateName) {
				skipped++
				continue
			}
			log.Fatal().Err(err).Str("name", in.Name).Msg("alta de ítem")
		}
		created++
	}
	log.Info().Int("created", created).Int("skipped", skipped).Msg("seed completado")
}

// readSeed interpreta el CSV; la primera fila es encabezado.
func readSeed(r io.Reader) ([]inventory.CreateItemInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	out := make([]inventory.CreateItemInput, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) < 7 {
			return nil, fmt.Errorf("línea %d: se esperaban al menos 7 columnas, hay %d", line, len(rec))
		}
		nums := make([]decimal.Decimal, 4)
		for j, raw := range rec[3:7] {
			d, err := parseDecimal(raw)
			if err != nil {
				return nil, fmt.Errorf("línea %d, columna %d: %w", line, j+4, err)
			}
			nums[j] = d
		}
		in := inventory.CreateItemInput{
			Name:         rec[0],
			Category:     rec[1],
			Unit:         rec[2],
			InitialStock: nums[0],
			MinStock:     nums[1],
			MaxStock:     nums[2],
			ReorderPoint: nums[3],
			PerformedBy:  "seed",
		}
		if len(rec) > 7 && strings.TrimSpace(rec[7]) != "" {
			d, err := parseDecimal(rec[7])
			if err != nil {
				return nil, fmt.Errorf("línea %d, densidad: %w", line, err)
			}
			in.Density = &d
		}
		out = append(out, in)
	}
	return out, nil
}

// parseDecimal acepta coma decimal ("0,5").
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}
