package world

import "github.com/prometheus/client_golang/prometheus"

var (
	writesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "voxel_level",
		Name:      "writes_dropped_total",
		Help:      "Записи вокселей за пределами уровня, отброшенные без ошибки.",
	})

	raycasts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxel_level",
		Name:      "raycasts_total",
		Help:      "Количество трассировок лучей по результату (hit/miss).",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(writesDropped, raycasts)
}
