package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// responsesTotal counts chat responses by source (faq, llm, none, error).
var responsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "faqbot",
	Subsystem: "chat",
	Name:      "responses_total",
	Help:      "Chat responses by answer source.",
}, []string{"source"})
