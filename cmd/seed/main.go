package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"polcomp/internal/app"
	"polcomp/internal/config"
	"polcomp/internal/logging"
	"polcomp/internal/model"
	"polcomp/internal/refdata"
	"polcomp/internal/repository"
	"polcomp/internal/scoring"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("POLCOMP_CONFIG"), "path to YAML config file")
	n := flag.Int("n", 500, "number of synthetic results to insert")
	days := flag.Int("days", 365, "spread result dates over this many past days")
	groupSize := flag.Int("group-size", 5, "results per synthetic group id, 0 disables groups")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer a.Close(context.Background())

	questions, err := refdata.FileQuestions{Path: cfg.RefDataPath(cfg.RefData.QuestionsFile)}.ListQuestions(ctx)
	if err != nil {
		log.Fatalf("Failed to read questions: %v", err)
	}

	if a.Mongo != nil {
		qRepo := repository.NewQuestionRepo(a.Mongo)
		for i := range questions {
			if err := qRepo.Upsert(ctx, &questions[i]); err != nil {
				log.Fatalf("Failed to upsert question %d: %v", questions[i].ID, err)
			}
		}
		fmt.Printf("Upserted %d questions\n", len(questions))
	}

	schema, err := a.RefData.Schema(ctx)
	if err != nil {
		log.Fatalf("Failed to load demographics schema: %v", err)
	}

	weights := model.BuildWeightTable(questions)
	today := model.Today()
	var group string

	for i := 0; i < *n; i++ {
		if *groupSize > 0 && i%*groupSize == 0 {
			group = uuid.NewString()
		}

		answers := make(model.AnswerSet, len(weights))
		for id := range weights {
			answers[id] = model.MinAnswer + rand.IntN(model.MaxAnswer-model.MinAnswer+1)
		}
		scores, err := scoring.ComputeScores(answers, weights)
		if err != nil {
			log.Fatalf("Failed to score synthetic answers: %v", err)
		}

		rec := &model.ResultRecord{
			Date:         today.AddDays(-rand.IntN(*days + 1)),
			GroupID:      group,
			Demographics: randomDemographics(schema),
			Scores:       scores,
			Answers:      answers,
			HowFound:     pick(schema.HowFound),
		}
		if _, err := a.Results.Insert(ctx, rec); err != nil {
			log.Fatalf("Failed to insert result: %v", err)
		}
	}

	total, err := a.Results.Total(ctx)
	if err != nil {
		logger.Warn("could not count results", zap.Error(err))
	}
	fmt.Printf("Inserted %d synthetic results (%d total) into %s store\n", *n, total, cfg.Store.Driver)
}

func randomDemographics(s *refdata.Schema) model.Demographics {
	d := model.Demographics{
		Age:       model.AgeSkip,
		Country:   pick(s.Country),
		Religion:  pick(s.Religion),
		Ethnicity: pick(s.Ethnicity),
		Education: pick(s.Education),
	}
	if len(s.Ages) > 0 {
		d.Age = s.Ages[rand.IntN(len(s.Ages))]
	}
	if parties := s.Parties[d.Country]; len(parties) > 0 {
		d.Party = d.Country + "-" + pick(parties)
	}
	for _, id := range s.Identities {
		if rand.IntN(4) == 0 {
			d.Identities = append(d.Identities, id)
		}
	}
	return d
}

func pick(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[rand.IntN(len(values))]
}
