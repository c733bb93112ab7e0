package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gen"
	"gorm.io/gorm"
)

// tables are the ones the gorm adapter maps; anything else in the schema
// is ignored.
var tables = []string{"policy_snapshots", "agent_policies", "episode_records"}

func main() {
	var dsn, out, only string
	flag.StringVar(&dsn, "dsn", os.Getenv("FARMCYCLE_DB_DSN"), "postgres dsn")
	flag.StringVar(&out, "out", "internal/adapter/repo/gorm/model", "output dir for generated models")
	flag.StringVar(&only, "tables", strings.Join(tables, ","), "comma separated tables to generate")
	flag.Parse()

	if dsn == "" {
		log.Fatal("missing --dsn or FARMCYCLE_DB_DSN")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:       out,
		ModelPkgPath:  "model",
		Mode:          gen.WithoutContext,
		FieldNullable: false,
	})
	g.UseDB(db)
	// jsonb columns are carried as raw strings and decoded by the repos.
	g.WithDataTypeMap(map[string]func(gorm.ColumnType) string{
		"jsonb": func(gorm.ColumnType) string { return "string" },
	})
	for _, table := range strings.Split(only, ",") {
		if table = strings.TrimSpace(table); table != "" {
			g.GenerateModel(table)
		}
	}
	g.Execute()

	fmt.Printf("generated gorm models at %s\n", out)
}
