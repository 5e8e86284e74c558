// Package quota maps (action, tier) pairs to rate-limit quotas.
//
// Quotas are registered exhaustively at process start and the resulting
// Table is immutable, so an unregistered action fails fast during
// registration review rather than surprising callers at request time.
//
// Each action declares a base quota, optional per-tier overrides, and an
// optional guest-burst class: a stricter quota enforced only for anonymous
// callers of high-cost actions.
//
//	table := quota.MustTable(
//		quota.Definition{
//			Action: "generate",
//			Base:   quota.Config{MaxRequests: 60, Window: time.Minute},
//			Overrides: map[quota.Tier]quota.Config{
//				quota.TierPro:   {MaxRequests: 600, Window: time.Minute},
//				quota.TierAdmin: {MaxRequests: 6000, Window: time.Minute},
//			},
//			GuestBurst: &quota.Config{MaxRequests: 3, Window: time.Minute},
//		},
//	)
//
//	cfg, err := table.Resolve("generate", quota.TierFree)
package quota
