package mysql

// -----------------------------------------------------------------------------
// INVENTORY
// -----------------------------------------------------------------------------

const listCategoriesSQL = `
SELECT id, title, subtitle, price, status, features, images, reverse_layout
FROM categories
ORDER BY id
`

const listUnitsSQL = `
SELECT id, category_id, label, status
FROM room_units
ORDER BY id
`

// Lowest id first keeps binding deterministic. The row lock makes concurrent
// binders for one category queue on the unit instead of all reading it.
const lockFreeUnitByLabelSQL = `
SELECT u.id, u.category_id, u.label, u.status
FROM room_units u
JOIN categories c ON c.id = u.category_id
WHERE c.subtitle = ? AND u.status = 'free'
ORDER BY u.id
LIMIT 1
FOR UPDATE
`

const setUnitStatusSQL = `UPDATE room_units SET status = ? WHERE id = ?`

// Conditional variant: only applies while the unit is still in the expected status.
const casUnitStatusSQL = `UPDATE room_units SET status = ? WHERE id = ? AND status = ?`

const lockUnitInStatusSQL = `
SELECT id
FROM room_units
WHERE category_id = ? AND status = ?
ORDER BY id
LIMIT 1
FOR UPDATE
`

const lockNewestFreeUnitSQL = `
SELECT id
FROM room_units
WHERE category_id = ? AND status = 'free'
ORDER BY id DESC
LIMIT 1
FOR UPDATE
`

const deleteFreeUnitSQL = `DELETE FROM room_units WHERE id = ? AND status = 'free'`

const lockCategorySQL = `SELECT subtitle FROM categories WHERE id = ? FOR UPDATE`

const countUnitsSQL = `SELECT COUNT(*) FROM room_units WHERE category_id = ?`

const insertUnitSQL = `INSERT INTO room_units (category_id, label, status) VALUES (?, ?, 'free')`

// Price lives on the category row, so one statement reprices every unit.
const setCategoryPriceSQL = `UPDATE categories SET price = ? WHERE id = ?`

// -----------------------------------------------------------------------------
// LEDGER
// -----------------------------------------------------------------------------

const insertTransactionSQL = `
INSERT INTO transactions
  (id, order_id, room_name, amount, customer, status, created_at, detail)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const getTransactionSQL = `
SELECT id, order_id, room_name, amount, customer, status, created_at, detail
FROM transactions
WHERE order_id = ?
`

// Compare-and-set on status. Requires clientFoundRows so a same-value write
// still reports the matched row.
const casTransactionStatusSQL = `
UPDATE transactions
SET status = ?, detail = ?
WHERE order_id = ? AND status = ?
`

const deleteTransactionSQL = `DELETE FROM transactions WHERE order_id = ?`

const listTransactionsSQL = `
SELECT id, order_id, room_name, amount, customer, status, created_at, detail
FROM transactions
ORDER BY created_at DESC, id DESC
`

// -----------------------------------------------------------------------------
// COMPLAINTS
// -----------------------------------------------------------------------------

const insertComplaintSQL = `
INSERT INTO complaints
  (id, full_name, document_type, document_number, email, phone, address, type, description, status, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const setComplaintStatusSQL = `UPDATE complaints SET status = ? WHERE id = ?`
