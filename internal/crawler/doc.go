// Package crawler implements the bounded site crawl used during onboarding: URL
// normalization, the two-tier frontier, link classification, and the Engine that
// ties a Renderer, sitemap seeding, page persistence, and chunk publishing together.
package crawler
