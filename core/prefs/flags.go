package prefs

import "context"

// SkipConfirm reports whether the profile chose to open detail pages
// without the confirmation dialog.
func (s *Store) SkipConfirm(ctx context.Context, profile, module string) (bool, error) {
	var skip bool
	_, err := s.load(ctx, profile, skipConfirmKey(module), &skip)
	return skip, err
}

// SetSkipConfirm sets or clears the skip-confirm flag of a module.
func (s *Store) SetSkipConfirm(ctx context.Context, profile, module string, skip bool) error {
	if !skip {
		return s.kv.Delete(ctx, profile, skipConfirmKey(module))
	}
	return s.save(ctx, profile, skipConfirmKey(module), true)
}
