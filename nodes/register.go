package nodes

import "github.com/kbukum/pipekit/serde"

// Register adds every built-in node constructor to reg.
func Register(reg *serde.Registry) {
	reg.RegisterConstructor(IdentityIdentifier, func(args ...any) (any, error) {
		if err := serde.Arity(args, 0); err != nil {
			return nil, err
		}
		return NewIdentity(), nil
	})
	reg.RegisterConstructor(SuffixIdentifier, textConstructor(func(s string) any { return NewSuffix(s) }))
	reg.RegisterConstructor(PrefixIdentifier, textConstructor(func(s string) any { return NewPrefix(s) }))
	reg.RegisterConstructor(RenameIdentifier, func(args ...any) (any, error) {
		if err := serde.Arity(args, 1); err != nil {
			return nil, err
		}
		mapping, err := serde.Arg[map[string]string](args, 0)
		if err != nil {
			return nil, err
		}
		return NewRename(mapping), nil
	})
	reg.RegisterConstructor(FetchIdentifier, func(args ...any) (any, error) {
		if err := serde.Arity(args, 1); err != nil {
			return nil, err
		}
		cfg, err := serde.Arg[FetchConfig](args, 0)
		if err != nil {
			return nil, err
		}
		return NewFetch(cfg), nil
	})
}

func textConstructor(build func(string) any) serde.Factory {
	return func(args ...any) (any, error) {
		if err := serde.Arity(args, 1); err != nil {
			return nil, err
		}
		text, err := serde.Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return build(text), nil
	}
}

