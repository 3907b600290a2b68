package inference

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var embeddingsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "orgbridge",
	Name:      "embeddings_generated_total",
	Help:      "Embedding vectors returned by the managed endpoint.",
})
