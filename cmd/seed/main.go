package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sahithikokkula/samplingapi/internal/config"
	"github.com/sahithikokkula/samplingapi/internal/logging"
	"github.com/sahithikokkula/samplingapi/pkg/dataset"
	"github.com/sahithikokkula/samplingapi/pkg/storage"
)

func main() {
	households := flag.Int("households", 20000, "rows of the households population")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		logging.Fatal("load config", zap.Error(err))
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		logging.Fatal("init logging", zap.Error(err))
	}
	defer logging.Sync()

	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		logging.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := storage.EnsureMetaTables(ctx, db); err != nil {
		logging.Fatal("ensure meta tables", zap.Error(err))
	}

	rng := rand.New(rand.NewSource(*seed))
	if err := seedHouseholds(ctx, db, rng, *households); err != nil {
		logging.Fatal("seed households", zap.Error(err))
	}
	if err := seedSchools(ctx, db, rng); err != nil {
		logging.Fatal("seed schools", zap.Error(err))
	}
	logging.Info("seed done", zap.String("database", cfg.Database.Path))
}

func number(f float64) json.RawMessage {
	b, _ := json.Marshal(math.Round(f*100) / 100)
	return b
}

func text(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// seedHouseholds stores a population of households with a region stratum, a
// heavy-tailed income and an auxiliary variable (last year's income)
// correlated with it.
func seedHouseholds(ctx context.Context, db *sql.DB, rng *rand.Rand, n int) error {
	logging.Info("seeding households", zap.Int("rows", n))

	regions := []string{"north", "south", "east", "west", "capital"}
	// regional income scale
	scale := map[string]float64{"north": 38000, "south": 31000, "east": 34000, "west": 36000, "capital": 52000}

	id := make([]json.RawMessage, 0, n)
	region := make([]json.RawMessage, 0, n)
	size := make([]json.RawMessage, 0, n)
	income := make([]json.RawMessage, 0, n)
	lastYear := make([]json.RawMessage, 0, n)
	owner := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		r := regions[rng.Intn(len(regions))]
		inc := scale[r] * (0.5 + rng.ExpFloat64()*0.6)
		prev := inc * (0.9 + rng.NormFloat64()*0.05)

		id = append(id, number(float64(i+1)))
		region = append(region, text(r))
		size = append(size, number(float64(1+rng.Intn(6))))
		income = append(income, number(inc))
		lastYear = append(lastYear, number(prev))
		if rng.Float64() < 0.03 {
			// missing answers for removeMissing demos
			owner = append(owner, json.RawMessage("null"))
		} else {
			owner = append(owner, json.RawMessage(fmt.Sprint(rng.Float64() < 0.6)))
		}
	}

	t := dataset.New()
	for _, c := range []struct {
		name   string
		values []json.RawMessage
	}{
		{"id", id}, {"region", region}, {"size", size},
		{"income", income}, {"lastYearIncome", lastYear}, {"owner", owner},
	} {
		if err := t.AddColumn(c.name, c.values); err != nil {
			return err
		}
	}
	return storage.ImportTable(ctx, db, "households", t)
}

// seedSchools stores a small clustered population: pupils' scores grouped by
// school, for cluster-sampling demos.
func seedSchools(ctx context.Context, db *sql.DB, rng *rand.Rand) error {
	logging.Info("seeding schools")

	t := dataset.New()
	for _, name := range []string{"school", "pupils", "totalScore"} {
		if err := t.AddColumn(name, nil); err != nil {
			return err
		}
	}
	for s := 1; s <= 200; s++ {
		pupils := 20 + rng.Intn(60)
		mean := 60 + rng.NormFloat64()*8
		total := 0.0
		for p := 0; p < pupils; p++ {
			total += mean + rng.NormFloat64()*12
		}
		t.Append("school", text(fmt.Sprintf("S%03d", s)))
		t.Append("pupils", number(float64(pupils)))
		t.Append("totalScore", number(total))
	}
	return storage.ImportTable(ctx, db, "schools", t)
}
