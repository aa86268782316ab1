package supervision

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// details aggregates the simulation's structure into one report: every
// robot with its type tag and reachable services, a per-component
// breakdown with the same service cross-reference, and stream
// descriptors where a datastream is attached. Components without
// services or streams simply omit those keys.
func (s *Services) details([]any) (any, error) {
	services, interfaces := s.middlewares.ServiceIndex()

	digest := xxhash.New()
	robots := make([]map[string]any, 0, len(s.components.Robots()))
	for _, robot := range s.components.Robots() {
		_, _ = digest.WriteString(robot.Name())
		_, _ = digest.WriteString(robot.Type())

		entry := map[string]any{
			"name": robot.Name(),
			"type": robot.Type(),
		}
		if ops, ok := services[robot.Name()]; ok && len(ops) > 0 {
			entry["services"] = ops
			entry["services_interfaces"] = interfaces[robot.Name()]
		}

		components := make([]map[string]any, 0, len(robot.Components()))
		for _, c := range robot.Components() {
			_, _ = digest.WriteString(c.Name())
			_, _ = digest.WriteString(c.Type())

			comp := map[string]any{
				"name": c.Name(),
				"type": c.Type(),
			}
			if ops, ok := services[c.Name()]; ok && len(ops) > 0 {
				comp["services"] = ops
				comp["service_interfaces"] = interfaces[c.Name()]
			}
			if stream, ok := s.components.Stream(c.Name()); ok {
				comp["stream"] = stream.Handle
				comp["stream_interfaces"] = stream.Interfaces
			}
			components = append(components, comp)
		}
		if len(components) > 0 {
			entry["components"] = components
		}
		robots = append(robots, entry)
	}

	return map[string]any{
		"robots":   robots,
		"revision": fmt.Sprintf("%016x", digest.Sum64()),
	}, nil
}
