package handling

// Discriminator is a predicate over a message View. Discriminators gate
// resolvers (see When) and run on every CanHandle, so they should be cheap.
type Discriminator interface {
	Match(v View) bool
}

// DiscriminatorFunc is a function adapter for Discriminator.
type DiscriminatorFunc func(v View) bool

// Match implements the Discriminator interface.
func (f DiscriminatorFunc) Match(v View) bool {
	return f(v)
}

// HasFields returns a Discriminator that matches when all paths exist.
func HasFields(paths ...string) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		for _, p := range paths {
			if !v.HasField(p) {
				return false
			}
		}
		return true
	})
}

// FieldEquals returns a Discriminator that matches when the path exists
// and equals the given string value.
func FieldEquals(path, value string) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		s, ok := v.GetString(path)
		return ok && s == value
	})
}

// MetadataEquals matches messages whose header key equals value.
func MetadataEquals(key, value string) Discriminator {
	return FieldEquals(MetadataPrefix+key, value)
}

// And returns a Discriminator that matches when all discriminators match.
// An empty And matches everything.
func And(ds ...Discriminator) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		for _, d := range ds {
			if !d.Match(v) {
				return false
			}
		}
		return true
	})
}

// Or returns a Discriminator that matches when any discriminator matches.
// An empty Or matches nothing.
func Or(ds ...Discriminator) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		for _, d := range ds {
			if d.Match(v) {
				return true
			}
		}
		return false
	})
}

// Not returns a Discriminator that matches when d does not.
func Not(d Discriminator) Discriminator {
	return DiscriminatorFunc(func(v View) bool {
		return !d.Match(v)
	})
}
