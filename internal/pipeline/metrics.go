package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "clockin_submissions_total",
	Help: "Capture-upload submissions by target kind and outcome.",
}, []string{"kind", "outcome"})
