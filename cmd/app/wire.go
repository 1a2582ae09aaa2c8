//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/faqbot/internal/bootstrap"
	"github.com/yanqian/faqbot/internal/domain/chat"
	"github.com/yanqian/faqbot/internal/domain/faq"
	"github.com/yanqian/faqbot/internal/domain/gateway"
	"github.com/yanqian/faqbot/internal/infra/config"
	httpiface "github.com/yanqian/faqbot/internal/interface/http"
	"github.com/yanqian/faqbot/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideFAQCatalog,
		provideGatewayConfig,
		provideModelLoader,
		provideTokenCounter,
		provideProcessLock,
		provideChatConfig,
		provideAnswerCache,
		gateway.NewGateway,
		chat.NewService,
		wire.Bind(new(faq.Matcher), new(*faq.Catalog)),
		wire.Bind(new(chat.Generator), new(*gateway.Gateway)),
		wire.Bind(new(httpiface.ModelStatus), new(*gateway.Gateway)),
		wire.Bind(new(httpiface.EntryCounter), new(*faq.Catalog)),
		wire.Bind(new(bootstrap.Model), new(*gateway.Gateway)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
