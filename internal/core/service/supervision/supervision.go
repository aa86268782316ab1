// Package supervision implements the simulation-category services:
// the control-and-introspection surface external clients reach through
// the attached middlewares. Handlers run on the simulation's single
// update thread, so none of them take locks.
package supervision

import (
	"github.com/simverse/simverse/internal/core/middleware"
	"github.com/simverse/simverse/internal/core/observability/log"
	"github.com/simverse/simverse/internal/core/scene"
	"github.com/simverse/simverse/internal/core/service"
	"github.com/simverse/simverse/internal/core/sim"
)

// Category is the component category all supervision services are
// registered under.
const Category = "simulation"

// Engine is the simulation lifecycle surface quit and terminate drive.
// Quit finalizes the simulation before stopping it; Terminate stops it
// cold.
type Engine interface {
	Quit()
	Terminate()
}

// Services bundles the collaborators the supervision handlers work on.
type Services struct {
	scene       scene.Scene
	components  *sim.Registry
	middlewares *middleware.Registry
	engine      Engine
	logger      log.Log
}

func New(sc scene.Scene, components *sim.Registry, middlewares *middleware.Registry, engine Engine, logger log.Log) *Services {
	return &Services{
		scene:       sc,
		components:  components,
		middlewares: middlewares,
		engine:      engine,
		logger:      logger.Named("supervision"),
	}
}

// RegisterAll binds every supervision service into the registry. Called
// once during the startup registration pass, before the registry is
// sealed.
func (s *Services) RegisterAll(reg *service.Registry) {
	str := func(name string) service.Param { return service.Param{Name: name, Type: "string"} }
	boolean := func(name string) service.Param { return service.Param{Name: name, Type: "bool"} }

	reg.Register(Category, "list_robots", s.listRobots)
	reg.Register(Category, "reset_objects", s.resetObjects)
	reg.Register(Category, "quit", s.quit)
	reg.Register(Category, "terminate", s.terminate)
	reg.Register(Category, "activate", s.activate, str("component_name"))
	reg.Register(Category, "deactivate", s.deactivate, str("component_name"))
	reg.Register(Category, "suspend_dynamics", s.suspendDynamics)
	reg.Register(Category, "restore_dynamics", s.restoreDynamics)
	reg.Register(Category, "details", s.details)
	reg.Register(Category, "set_log_level", s.setLogLevel, str("component"), str("level"))
	reg.Register(Category, "get_scene_objects", s.getSceneObjects)
	reg.Register(Category, "set_object_visibility", s.setObjectVisibility,
		str("object_name"), boolean("visible"), boolean("do_children"))
	reg.Register(Category, "set_object_dynamics", s.setObjectDynamics,
		str("object_name"), boolean("state"))
	reg.Register(Category, "get_object_pose", s.getObjectPose, str("object_name"))
	reg.Register(Category, "set_object_pose", s.setObjectPose,
		str("object_name"), str("position"), str("orientation"))
	reg.Register(Category, "get_object_global_bbox", s.getObjectGlobalBbox, str("object_name"))
	reg.Register(Category, "get_object_bbox", s.getObjectBbox, str("object_name"))
	reg.Register(Category, "get_object_type", s.getObjectType, str("object_name"))
	reg.Register(Category, "transform_to_obj_frame", s.transformToObjFrame,
		str("object_name"), str("point"))
}

// object resolves a name to a live scene handle. Every query and mutate
// service goes through here so missing names always surface the same
// fault.
func (s *Services) object(name string) (scene.Object, error) {
	obj, ok := s.scene.Object(name)
	if !ok {
		return nil, service.NotFound("object %q does not appear in the scene", name)
	}
	return obj, nil
}

func (s *Services) listRobots([]any) (any, error) {
	robots := s.components.Robots()
	names := make([]string, 0, len(robots))
	for _, r := range robots {
		names = append(names, r.Name())
	}
	return names, nil
}

func (s *Services) resetObjects([]any) (any, error) {
	s.scene.Reset()
	s.logger.Info("scene objects reset to load-time state")
	return "Objects restored to initial position", nil
}

func (s *Services) quit([]any) (any, error) {
	s.logger.Info("quit requested")
	s.engine.Quit()
	return nil, nil
}

func (s *Services) terminate([]any) (any, error) {
	s.logger.Info("terminate requested")
	s.engine.Terminate()
	return nil, nil
}

func (s *Services) activate(params []any) (any, error) {
	return s.setComponentActive(params, true)
}

func (s *Services) deactivate(params []any) (any, error) {
	return s.setComponentActive(params, false)
}

func (s *Services) setComponentActive(params []any, on bool) (any, error) {
	name, err := service.StringArg(params, 0, "component_name")
	if err != nil {
		return nil, err
	}
	if on {
		err = s.components.Activate(name)
	} else {
		err = s.components.Deactivate(name)
	}
	if err != nil {
		s.logger.Warn("component activation toggle failed",
			log.String("component", name), log.Bool("active", on), log.Error(err))
		return nil, service.InvalidArgument("component %q not found", name)
	}
	return nil, nil
}

func (s *Services) suspendDynamics([]any) (any, error) {
	for _, obj := range s.scene.Objects() {
		obj.SuspendDynamics()
	}
	return "Physics is suspended", nil
}

func (s *Services) restoreDynamics([]any) (any, error) {
	for _, obj := range s.scene.Objects() {
		obj.RestoreDynamics()
	}
	return "Physics is resumed", nil
}

func (s *Services) setLogLevel(params []any) (any, error) {
	component, err := service.StringArg(params, 0, "component")
	if err != nil {
		return nil, err
	}
	level, err := service.StringArg(params, 1, "level")
	if err != nil {
		return nil, err
	}
	if err := log.SetComponentLevel(component, level); err != nil {
		s.logger.Warn("log level change rejected",
			log.String("component", component), log.String("level", level), log.Error(err))
		return nil, service.InvalidArgument("invalid log level %q", level)
	}
	return nil, nil
}

func (s *Services) setObjectVisibility(params []any) (any, error) {
	name, err := service.StringArg(params, 0, "object_name")
	if err != nil {
		return nil, err
	}
	visible, err := service.BoolArg(params, 1, "visible")
	if err != nil {
		return nil, err
	}
	recurse, err := service.BoolArg(params, 2, "do_children")
	if err != nil {
		return nil, err
	}
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	obj.SetVisible(visible, recurse)
	return visible, nil
}
