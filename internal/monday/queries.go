package monday

const queryItem = `query ($ids: [ID!]) {
  items(ids: $ids) {
    id
    name
  }
}`

const queryItemDetails = `query ($ids: [ID!]) {
  items(ids: $ids) {
    id
    name
    state
    url
    board { id name }
    group { title }
    column_values { id type text }
    updates(limit: 100) { id }
  }
}`
