// Package harness runs end-to-end API scenarios against an in-process
// scribe server.
//
// Each scenario starts from an empty in-memory SQLite database, a fake
// clock fixed at testutil.Epoch and the real gin router. Steps are HTTP
// requests made on behalf of a scenario user; assertions inspect the
// resulting trace and the stored posts.
//
// # Scenario Format
//
//	name: draft_lifecycle
//	description: "Drafts stay private until published"
//	users:
//	  - username: alice
//	    display_name: Alice
//	steps:
//	  - as: alice
//	    method: POST
//	    path: /api/posts
//	    body: { title: "Hello World", content: "<p>Hi</p>" }
//	    save: { draft: id }
//	    expect:
//	      status: 201
//	      json: { slug: hello-world, published: false }
//	  - method: GET
//	    path: /@alice/hello-world
//	    expect: { status: 404 }
//	  - advance: 1h
//	    as: alice
//	    method: PUT
//	    path: /api/posts/{{draft}}
//	    body: { title: "Hello World", content: "<p>Hi</p>", publish: true }
//	assertions:
//	  - type: post_state
//	    user: alice
//	    slug: hello-world
//	    expect: { published: true }
//
// Values saved with save are substituted for {{name}} in later paths,
// string body values and expected values. Expected JSON keys are dotted
// paths into the response document ("post.slug", "posts.0.title").
//
// # Assertion Types
//
//   - post_state: the post exists and its JSON fields match expect
//   - post_absent: no post with that slug exists for the user
//   - feed_items: the user's RSS feed has exactly count items
//   - trace_count: exactly count steps match method, path and status
//
// Golden files record one line per step (user, method, path template,
// status), so they do not depend on generated identifiers.
package harness
