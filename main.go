package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/cakeshop-assistant/agent/orchestrator"
	promptx "github.com/tanpawarit/cakeshop-assistant/agent/prompt"
	toolx "github.com/tanpawarit/cakeshop-assistant/agent/tool"
	configx "github.com/tanpawarit/cakeshop-assistant/pkg/config"
	_ "github.com/tanpawarit/cakeshop-assistant/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/cakeshop-assistant/pkg/openrouter"
	inventoryx "github.com/tanpawarit/cakeshop-assistant/shop/inventory"
	storex "github.com/tanpawarit/cakeshop-assistant/shop/store"
	vectorx "github.com/tanpawarit/cakeshop-assistant/shop/vector"
)

const greeting = "Hiya, I'm the cake shop chatbot. How can I help you today? Let's make your day a little sweeter!"

type AppConfig struct {
	InventoryPath string `envconfig:"INVENTORY_PATH" split_words:"true" default:"cake_inventory.json"`
	FAQPath       string `envconfig:"FAQ_PATH" split_words:"true" default:"cake_faq.json"`
	SeedIndex     bool   `envconfig:"SEED_INDEX" split_words:"true" default:"false"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")
	storeCfg := configx.MustNew[storex.Config]("POSTGRES")
	vectorCfg := configx.MustNew[vectorx.Config]("UPSTASH_VECTOR")
	modelCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	agentCfg := configx.MustNew[orchestratorx.Config]("AGENT")

	db, err := storex.Connect(*storeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to store")
	}
	defer db.Close()

	if err := storex.Bootstrap(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("bootstrap store")
	}
	recordStore, err := storex.New(db)
	if err != nil {
		log.Fatal().Err(err).Msg("create record store")
	}

	catalog, err := inventoryx.Load(appCfg.InventoryPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load inventory")
	}

	sdkClient := openrouterx.NewClient(*modelCfg)
	if sdkClient == nil {
		log.Fatal().Msg("openrouter api key is missing")
	}
	embedder, err := vectorx.NewOpenAIEmbedder(sdkClient, modelCfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("create embedder")
	}
	vectorClient, err := vectorx.NewClient(*vectorCfg, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("create vector client")
	}
	faqIndex := vectorClient.Namespace("faq")
	productIndex := vectorClient.Namespace("inventory")

	if appCfg.SeedIndex {
		faqs, err := vectorx.LoadFAQs(appCfg.FAQPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load faqs")
		}
		if err := vectorx.SeedFAQs(ctx, faqIndex, faqs); err != nil {
			log.Fatal().Err(err).Msg("seed faq index")
		}
		if err := vectorx.SeedInventory(ctx, productIndex, catalog.Items()); err != nil {
			log.Fatal().Err(err).Msg("seed inventory index")
		}
		log.Info().Msg("semantic index seeded")
	}

	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create chat model")
	}

	gateway, err := toolx.New(recordStore, catalog, faqIndex, productIndex)
	if err != nil {
		log.Fatal().Err(err).Msg("create tool gateway")
	}

	agent, err := orchestratorx.New(chatModel, toolx.Infos(), gateway, promptx.System(), *agentCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create orchestrator")
	}

	runShell(ctx, agent)
}

// runShell is the line-oriented presentation shell: it owns the message
// history and relays user input through the orchestrator.
func runShell(ctx context.Context, agent *orchestratorx.Orchestrator) {
	sessionID := uuid.NewString()
	log.Info().Str("session_id", sessionID).Msg("chat session started")

	fmt.Println(greeting)

	var history []*schema.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			break
		}

		updated, err := agent.HandleMessage(ctx, history, input)
		if err != nil {
			log.Error().Err(err).Msg("handle message")
			fmt.Println("Sorry, I couldn't process that. Please try again.")
			continue
		}
		history = updated

		if last := lastAssistantReply(history); last != "" {
			fmt.Println(last)
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("read input")
	}
	log.Info().Str("session_id", sessionID).Msg("chat session ended")
}

func lastAssistantReply(history []*schema.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == schema.Assistant {
			return strings.TrimSpace(history[i].Content)
		}
	}
	return ""
}
