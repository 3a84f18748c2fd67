package logger

import "github.com/sirupsen/logrus"

// Context is a set of log fields describing one entity, such as a job or a cluster.
type Context logrus.Fields

// Fields returns the context as logrus fields.
func (c Context) Fields() logrus.Fields {
	return logrus.Fields(c)
}

// Entry returns a logrus entry carrying the context.
func (c Context) Entry() *logrus.Entry {
	return logrus.WithFields(c.Fields())
}

// ComponentContext returns a context naming the component that logs, matching the field set by
// New for the API server.
func ComponentContext(component string) Context {
	return Context{"component": component}
}

// MergeContexts returns a new context holding the fields of every input. Later inputs win.
func MergeContexts(xs ...Context) Context {
	merged := Context{}
	for _, x := range xs {
		for k, v := range x {
			merged[k] = v
		}
	}
	return merged
}
