// Package plan provides a PA-BT planning node backed by
// github.com/joeycumines/go-pabt.
//
// A [Node] holds goals, expressed as condition groups over blackboard keys,
// and a [State] exposing the blackboard and an action library to the
// planner. On its first evaluation the node builds a plan, a
// go-behaviortree, that runs actions until every condition of a goal
// holds. Planning is repeated after a full reset.
package plan
