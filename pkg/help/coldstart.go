package help

const ColdstartYAML = `# content-qa Quick Start

checks:
  metadata: "SEO title, meta description and H1 fuzzy-matched against the document"
  bad_phrases: "Project copy rules, exact match against the page text"
  metrics: "Trust figures from the document (25+ Years, 4.9 Stars, 10+ Service areas)"
  links: "Every outbound link probed (--check-links)"
  language: "Document and page language compared (--check-language)"

commands:
  ad_hoc: |
    content-qa verify --url "https://acme.example/" --doc-url "https://docs.google.com/document/d/<id>/edit"

  ad_hoc_with_links: |
    content-qa verify --url "https://acme.example/" --check-links --format yaml

  file_tickets: |
    BUGHERD_API_KEY=... content-qa verify --url "https://acme.example/" --doc-url "..." --ticket --project-id 1234

  project_run: |
    content-qa project 42
    content-qa project --ticket --check-links 42

  webhook_listener: |
    content-qa serve --addr :5000

  document_cache: |
    content-qa cache list
    content-qa cache show "https://docs.google.com/document/d/<id>/edit"
    content-qa cache prune --older-than 1h

config_file:
  default: "config.yaml (--config to override, JSON also accepted)"
  live_pages: "Ordered mapping of page name to URL, checked in file order"
  cache_max_age: "How long a fetched document is reused (0s disables the cache)"

environment:
  BUGHERD_API_KEY: "Required for --ticket and webhook comments"
  PORT: "Listener port for serve when --addr is not set"

webhook:
  endpoint: "POST /webhook (task_create, task_update with task.metadata.url)"
  health: "GET /health"

error_behavior:
  - "Malformed URLs: fail fast before fetching"
  - "Unreachable pages: one issue, remaining checks skipped"
  - "Ticket and report failures: logged, run continues"
  - "Exit codes: 0=all pages passed, 1=issues found, 2=could not run"
`
