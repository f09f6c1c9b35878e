// Package memstore implementa los puertos de repositorio en memoria: transacciones por
// copia de estado y savepoints con diario de deshacer. Sirve como driver "memory" en desarrollo y como
// almacenamiento de los tests de casos de uso.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

var (
	_ repository.TxRunner        = (*Store)(nil)
	_ repository.AuditRepository = (*Store)(nil)
	_ repository.Session         = (*session)(nil)
)

// ErrInjected error de almacenamiento simulado por los hooks de test.
var ErrInjected = errors.New("memstore: fallo simulado")

type data struct {
	companies map[int64]entity.Company
	contacts  map[int64]entity.Contact
	deals     map[int64]entity.Deal
	tasks     map[int64]entity.Task
	audit     []entity.AuditLog
	seq       int64

	// diario de deshacer, solo mientras hay savepoints abiertos
	savepoints int
	undo       []func()
}

func newData() *data {
	return &data{
		companies: map[int64]entity.Company{},
		contacts:  map[int64]entity.Contact{},
		deals:     map[int64]entity.Deal{},
		tasks:     map[int64]entity.Task{},
	}
}

func (d *data) clone() *data {
	c := &data{
		companies: make(map[int64]entity.Company, len(d.companies)),
		contacts:  make(map[int64]entity.Contact, len(d.contacts)),
		deals:     make(map[int64]entity.Deal, len(d.deals)),
		tasks:     make(map[int64]entity.Task, len(d.tasks)),
		audit:     append([]entity.AuditLog(nil), d.audit...),
		seq:       d.seq,
	}
	for k, v := range d.companies {
		c.companies[k] = v
	}
	for k, v := range d.contacts {
		c.contacts[k] = v
	}
	for k, v := range d.deals {
		c.deals[k] = v
	}
	for k, v := range d.tasks {
		c.tasks[k] = v
	}
	return c
}

func (d *data) nextID() int64 {
	prev := d.seq
	d.journal(func() { d.seq = prev })
	d.seq++
	return d.seq
}

func (d *data) journal(undo func()) {
	if d.savepoints > 0 {
		d.undo = append(d.undo, undo)
	}
}

func (d *data) rollbackTo(mark int) {
	for i := len(d.undo) - 1; i >= mark; i-- {
		d.undo[i]()
	}
	d.undo = d.undo[:mark]
}

func (d *data) putCompany(c entity.Company) {
	prev, existed := d.companies[c.ID]
	d.journal(func() {
		if existed {
			d.companies[c.ID] = prev
		} else {
			delete(d.companies, c.ID)
		}
	})
	d.companies[c.ID] = c
}

func (d *data) deleteCompany(id int64) {
	if prev, ok := d.companies[id]; ok {
		d.journal(func() { d.companies[id] = prev })
		delete(d.companies, id)
	}
}

func (d *data) putContact(c entity.Contact) {
	prev, existed := d.contacts[c.ID]
	d.journal(func() {
		if existed {
			d.contacts[c.ID] = prev
		} else {
			delete(d.contacts, c.ID)
		}
	})
	d.contacts[c.ID] = c
}

func (d *data) deleteContact(id int64) {
	if prev, ok := d.contacts[id]; ok {
		d.journal(func() { d.contacts[id] = prev })
		delete(d.contacts, id)
	}
}

// Store almacenamiento en memoria. Las transacciones se serializan con un mutex.
type Store struct {
	mu        sync.Mutex
	committed *data

	// CreateHook, si no es nil, se invoca antes de cada alta; un error aborta la operación.
	CreateHook func(kind entity.Kind, label string) error
	// AuditHook, si no es nil, se invoca antes de escribir la bitácora.
	AuditHook func() error
}

// New crea un almacenamiento vacío.
func New() *Store {
	return &Store{committed: newData()}
}

// view da acceso a los datos bajo el aislamiento adecuado.
type view interface {
	with(fn func(d *data) error) error
	store() *Store
}

// RunInTx trabaja sobre una copia del estado confirmado y la publica solo si fn termina sin error.
func (s *Store) RunInTx(ctx context.Context, fn func(repository.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &session{s: s, d: s.committed.clone()}
	if err := fn(sess); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.committed = sess.d
	return nil
}

func (s *Store) with(fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.committed)
}

func (s *Store) store() *Store { return s }

// Companies repositorio fuera de transacción.
func (s *Store) Companies() repository.CompanyRepository { return &companyRepo{v: s} }

// Contacts repositorio fuera de transacción.
func (s *Store) Contacts() repository.ContactRepository { return &contactRepo{v: s} }

// Deals repositorio de lectura de oportunidades.
func (s *Store) Deals() repository.DealRepository { return &dealRepo{v: s} }

// Tasks repositorio de lectura de tareas.
func (s *Store) Tasks() repository.TaskRepository { return &taskRepo{v: s} }

// Lookup consulta de duplicados fuera de transacción.
func (s *Store) Lookup() repository.UniqueLookup { return &lookup{v: s} }

// Write añade entradas a la bitácora (implementa repository.AuditRepository).
func (s *Store) Write(ctx context.Context, entries []entity.AuditLog) error {
	if s.AuditHook != nil {
		if err := s.AuditHook(); err != nil {
			return err
		}
	}
	return s.with(func(d *data) error {
		for _, e := range entries {
			e.ID = d.nextID()
			d.audit = append(d.audit, e)
		}
		return nil
	})
}

// AuditEntries copia de la bitácora confirmada.
func (s *Store) AuditEntries() []entity.AuditLog {
	var out []entity.AuditLog
	_ = s.with(func(d *data) error {
		out = append(out, d.audit...)
		return nil
	})
	return out
}

// SeedDeal inserta una oportunidad directamente (datos de ejemplo y tests).
func (s *Store) SeedDeal(deal entity.Deal) int64 {
	_ = s.with(func(d *data) error {
		deal.ID = d.nextID()
		d.deals[deal.ID] = deal
		return nil
	})
	return deal.ID
}

// SeedTask inserta una tarea directamente.
func (s *Store) SeedTask(task entity.Task) int64 {
	_ = s.with(func(d *data) error {
		task.ID = d.nextID()
		d.tasks[task.ID] = task
		return nil
	})
	return task.ID
}

type session struct {
	s *Store
	d *data
}

func (t *session) with(fn func(d *data) error) error { return fn(t.d) }
func (t *session) store() *Store                      { return t.s }

func (t *session) Companies() repository.CompanyRepository { return &companyRepo{v: t} }
func (t *session) Contacts() repository.ContactRepository  { return &contactRepo{v: t} }
func (t *session) Lookup() repository.UniqueLookup         { return &lookup{v: t} }

// Savepoint ejecuta fn sobre la misma sesión y, si falla, deshace con el diario solo lo
// que fn escribió.
func (t *session) Savepoint(ctx context.Context, fn func(repository.Session) error) error {
	mark := len(t.d.undo)
	t.d.savepoints++
	err := fn(t)
	t.d.savepoints--
	if err != nil {
		t.d.rollbackTo(mark)
		return err
	}
	if t.d.savepoints == 0 {
		t.d.undo = nil
	}
	return nil
}
