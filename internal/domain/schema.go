package domain

// SchemaTypeDefs declares the node types in the site generator's GraphQL schema.
const SchemaTypeDefs = `type Contributors implements Node {
  date: String,
  login: String,
  name: String,
  avatarUrl: String
}
type GithubContributors implements Node {
  contributors: [Contributors]
}
`
