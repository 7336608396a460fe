// alicectl administra clients, scopes y usuarios directamente contra el
// store configurado (el mismo config.yaml que usa el servidor).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/aliceid/internal/config"
	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	"github.com/dropDatabas3/aliceid/internal/store"
	storememory "github.com/dropDatabas3/aliceid/internal/store/memory"
	storepg "github.com/dropDatabas3/aliceid/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	var dal store.DataAccessLayer

	root := &cobra.Command{
		Use:   "alicectl",
		Short: "CLI admin para AliceID (clients, scopes y usuarios)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Storage.Driver != "postgres" {
				// Con el driver memory cada invocación parte de un store
				// vacío; solo tiene sentido contra postgres.
				fmt.Fprintln(os.Stderr, "aviso: storage.driver != postgres, los cambios no persisten")
				dal = storememory.New()
				return nil
			}
			dal, err = storepg.New(cmd.Context(), storepg.Config{
				DSN:             cfg.Storage.DSN,
				MaxConns:        cfg.Storage.Postgres.MaxConns,
				ConnMaxLifetime: config.Duration(cfg.Storage.Postgres.ConnMaxLifetime),
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if dal != nil {
				dal.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "ruta al config.yaml (env CONFIG_PATH)")

	root.AddCommand(clientsCmd(&dal), scopesCmd(&dal), usersCmd(&dal))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// ---- clients ----

func clientsCmd(dal *store.DataAccessLayer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Operaciones sobre OIDC clients",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Listar clients registrados",
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := (*dal).Clients().List(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(clients)
			return nil
		},
	})

	var (
		clientID     string
		name         string
		clientType   string
		consentType  string
		redirectURIs []string
		scopes       []string
		secret       string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Registrar un client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientID == "" {
				return fmt.Errorf("--client-id es requerido")
			}
			ct := repository.ConsentType(strings.ToLower(consentType))
			if !ct.Valid() {
				return fmt.Errorf("--consent inválido: %q (implicit|explicit|external|systematic)", consentType)
			}
			if clientType == "confidential" && secret == "" {
				return fmt.Errorf("--secret es requerido para clients confidential")
			}
			c, err := (*dal).Clients().Create(cmd.Context(), repository.ClientInput{
				ClientID:     clientID,
				Name:         name,
				Type:         clientType,
				ConsentType:  ct,
				RedirectURIs: redirectURIs,
				Scopes:       scopes,
				Secret:       secret,
			})
			if err != nil {
				return err
			}
			printJSON(c)
			return nil
		},
	}
	createCmd.Flags().StringVar(&clientID, "client-id", "", "client_id público")
	createCmd.Flags().StringVar(&name, "name", "", "Display name para el consent screen")
	createCmd.Flags().StringVar(&clientType, "type", "confidential", "Tipo: public|confidential")
	createCmd.Flags().StringVar(&consentType, "consent", "explicit", "Política de consent: implicit|explicit|external|systematic")
	createCmd.Flags().StringSliceVar(&redirectURIs, "redirect-uri", nil, "Redirect URI permitida (repetible)")
	createCmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scope permitido (repetible)")
	createCmd.Flags().StringVar(&secret, "secret", "", "Client secret (solo confidential)")
	cmd.AddCommand(createCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <client-id>",
		Short: "Eliminar un client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*dal).Clients().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	})

	return cmd
}

// ---- scopes ----

func scopesCmd(dal *store.DataAccessLayer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scopes",
		Short: "Operaciones sobre scopes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Listar scopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			scopes, err := (*dal).Scopes().List(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(scopes)
			return nil
		},
	})

	var (
		displayName string
		claims      []string
		resources   []string
	)
	upsertCmd := &cobra.Command{
		Use:   "upsert <name>",
		Short: "Crear o actualizar un scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := (*dal).Scopes().Upsert(cmd.Context(), repository.ScopeInput{
				Name:        args[0],
				DisplayName: displayName,
				Claims:      claims,
				Resources:   resources,
			})
			if err != nil {
				return err
			}
			printJSON(s)
			return nil
		},
	}
	upsertCmd.Flags().StringVar(&displayName, "display-name", "", "Nombre amigable para el consent screen")
	upsertCmd.Flags().StringSliceVar(&claims, "claim", nil, "Claim incluido al otorgar el scope (repetible)")
	upsertCmd.Flags().StringSliceVar(&resources, "resource", nil, "Resource identifier asociado (repetible)")
	cmd.AddCommand(upsertCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Eliminar un scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*dal).Scopes().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	})

	return cmd
}

// ---- users ----

func usersCmd(dal *store.DataAccessLayer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Operaciones sobre usuarios",
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar usuarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := (*dal).Users().List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			printJSON(users)
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Máximo de resultados")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Offset de paginación")
	cmd.AddCommand(listCmd)

	var (
		email      string
		password   string
		name       string
		givenName  string
		familyName string
		screenName string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crear un usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email y --password son requeridos")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			u, err := (*dal).Users().Create(cmd.Context(), repository.CreateUserInput{
				Email:        email,
				PasswordHash: string(hash),
				Name:         name,
				GivenName:    givenName,
				FamilyName:   familyName,
				ScreenName:   screenName,
			})
			if err != nil {
				return err
			}
			printJSON(u)
			return nil
		},
	}
	createCmd.Flags().StringVar(&email, "email", "", "Email del usuario")
	createCmd.Flags().StringVar(&password, "password", "", "Password en claro (se guarda con bcrypt)")
	createCmd.Flags().StringVar(&name, "name", "", "Nombre completo")
	createCmd.Flags().StringVar(&givenName, "given-name", "", "Nombre")
	createCmd.Flags().StringVar(&familyName, "family-name", "", "Apellido")
	createCmd.Flags().StringVar(&screenName, "screen-name", "", "Username preferido")
	cmd.AddCommand(createCmd)

	var until string
	disableCmd := &cobra.Command{
		Use:   "disable <user-id>",
		Short: "Deshabilitar un usuario (opcionalmente hasta una fecha)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var untilPtr *time.Time
			if until != "" {
				t, err := time.Parse(time.RFC3339, until)
				if err != nil {
					return fmt.Errorf("--until debe ser RFC3339: %w", err)
				}
				untilPtr = &t
			}
			if err := (*dal).Users().Disable(cmd.Context(), args[0], untilPtr); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
	disableCmd.Flags().StringVar(&until, "until", "", "Fin del lockout en RFC3339 (vacío = permanente)")
	cmd.AddCommand(disableCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <user-id>",
		Short: "Eliminar un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*dal).Users().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	})

	return cmd
}
