package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rtspClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rtsp",
		Name:      "clients",
		Help:      "Connected RTSP clients per mount",
	}, []string{"stream"})

	rtspInstanceLive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rtsp",
		Name:      "instance_live",
		Help:      "1 while a pipeline instance exists for the mount",
	}, []string{"stream"})

	rtspInstancesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rtsp",
		Name:      "instances_created_total",
		Help:      "Pipeline instances constructed per mount",
	}, []string{"stream"})

	// Local cache for API access.
	mountCache   = make(map[string]*MountMetrics)
	mountCacheMu sync.RWMutex
)

// MountMetrics holds current metric values for a mount.
type MountMetrics struct {
	Clients          int
	Live             bool
	InstancesCreated int
}

// SetClients sets the connected client count for a mount.
func SetClients(stream string, n int) {
	rtspClients.WithLabelValues(stream).Set(float64(n))
	updateCache(stream, func(m *MountMetrics) { m.Clients = n })
}

// InstanceCreated records a new pipeline instance for a mount.
func InstanceCreated(stream string) {
	rtspInstanceLive.WithLabelValues(stream).Set(1)
	rtspInstancesCreated.WithLabelValues(stream).Inc()
	updateCache(stream, func(m *MountMetrics) {
		m.Live = true
		m.InstancesCreated++
	})
}

// InstanceReleased records the teardown of a mount's pipeline instance.
func InstanceReleased(stream string) {
	rtspInstanceLive.WithLabelValues(stream).Set(0)
	updateCache(stream, func(m *MountMetrics) { m.Live = false })
}

// DeleteMountMetrics removes all metrics for a mount.
func DeleteMountMetrics(stream string) {
	rtspClients.DeleteLabelValues(stream)
	rtspInstanceLive.DeleteLabelValues(stream)
	rtspInstancesCreated.DeleteLabelValues(stream)

	mountCacheMu.Lock()
	delete(mountCache, stream)
	mountCacheMu.Unlock()
}

// GetMountMetrics returns current metric values for a mount.
func GetMountMetrics(stream string) *MountMetrics {
	mountCacheMu.RLock()
	defer mountCacheMu.RUnlock()
	if m, ok := mountCache[stream]; ok {
		dup := *m
		return &dup
	}
	return nil
}

func updateCache(stream string, update func(*MountMetrics)) {
	mountCacheMu.Lock()
	defer mountCacheMu.Unlock()
	m, ok := mountCache[stream]
	if !ok {
		m = &MountMetrics{}
		mountCache[stream] = m
	}
	update(m)
}
