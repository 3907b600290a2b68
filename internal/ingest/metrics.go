package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var documentsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "orgbridge",
	Name:      "documents_ingested_total",
	Help:      "Documents chunked, embedded and written to the vector store.",
})
