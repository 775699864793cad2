package webstack

// scaffoldFiles is the initial skeleton written by CreateStructure.
var scaffoldFiles = map[string]string{
	"package.json":       packageJSON,
	"vite.config.ts":     viteConfig,
	"tsconfig.json":      tsConfig,
	"tsconfig.node.json": tsNodeConfig,
	"tailwind.config.js": tailwindConfig,
	"postcss.config.js":  postcssConfig,
	"index.html":         indexHTML,
	".gitignore":         gitignore,
	"src/main.tsx":       mainTSX,
	"src/index.css":      baseStyles,
	"src/App.tsx":        initialApp,
}

const packageJSON = `{
  "name": "forgeloop-artifact",
  "private": true,
  "version": "0.1.0",
  "type": "module",
  "scripts": {
    "dev": "vite",
    "build": "tsc && vite build",
    "preview": "vite preview"
  },
  "dependencies": {
    "react": "^18.2.0",
    "react-dom": "^18.2.0"
  },
  "devDependencies": {
    "@types/react": "^18.2.43",
    "@types/react-dom": "^18.2.17",
    "@vitejs/plugin-react": "^4.2.1",
    "autoprefixer": "^10.4.16",
    "postcss": "^8.4.32",
    "tailwindcss": "^3.4.0",
    "typescript": "^5.3.3",
    "vite": "^5.0.8"
  }
}
`

const viteConfig = `import { defineConfig } from 'vite';
import react from '@vitejs/plugin-react';

export default defineConfig({
  plugins: [react()],
});
`

const tsConfig = `{
  "compilerOptions": {
    "target": "ES2020",
    "useDefineForClassFields": true,
    "lib": ["ES2020", "DOM", "DOM.Iterable"],
    "module": "ESNext",
    "skipLibCheck": true,
    "moduleResolution": "bundler",
    "resolveJsonModule": true,
    "isolatedModules": true,
    "noEmit": true,
    "jsx": "react-jsx",
    "strict": true,
    "noUnusedLocals": true,
    "noUnusedParameters": true
  },
  "include": ["src"],
  "references": [{ "path": "./tsconfig.node.json" }]
}
`

const tsNodeConfig = `{
  "compilerOptions": {
    "composite": true,
    "skipLibCheck": true,
    "module": "ESNext",
    "moduleResolution": "bundler",
    "allowSyntheticDefaultImports": true
  },
  "include": ["vite.config.ts"]
}
`

const tailwindConfig = `/** @type {import('tailwindcss').Config} */
export default {
  content: ['./index.html', './src/**/*.{ts,tsx}'],
  theme: {
    extend: {},
  },
  plugins: [],
};
`

const postcssConfig = `export default {
  plugins: {
    tailwindcss: {},
    autoprefixer: {},
  },
};
`

const indexHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>Forgeloop Artifact</title>
  </head>
  <body>
    <div id="root"></div>
    <script type="module" src="/src/main.tsx"></script>
  </body>
</html>
`

const gitignore = `node_modules/
dist/
*.log
.forgeloop.lock
.forgeloop.journal
`

const mainTSX = `import React from 'react';
import ReactDOM from 'react-dom/client';
import App from './App';
import './index.css';

ReactDOM.createRoot(document.getElementById('root')!).render(
  <React.StrictMode>
    <App />
  </React.StrictMode>,
);
`

const baseStyles = `@tailwind base;
@tailwind components;
@tailwind utilities;

body {
  margin: 0;
  font-family: system-ui, sans-serif;
}
`

const enrichedStyles = baseStyles + `
/* Design system: styling tokens shared across the ui. */
:root {
  --color-primary: #2563eb;
  --color-surface: #f9fafb;
  --spacing-section: 4rem;
}

.section {
  padding: var(--spacing-section) 1rem;
  background: var(--color-surface);
}

@media (max-width: 640px) {
  .section {
    padding: 2rem 1rem;
  }
}
`

const initialApp = `function App() {
  return (
    <div className="min-h-screen bg-gray-50">
      <main className="p-8">Project under construction.</main>
    </div>
  );
}

export default App;
`

const navigationComponent = `const links = [
  { label: 'Home', href: '/' },
  { label: 'Features', href: '/features' },
  { label: 'Contact', href: '/contact' },
];

function Navigation() {
  return (
    <nav className="flex items-center justify-between bg-white px-6 py-4 shadow" aria-label="Main navigation">
      <span className="text-lg font-semibold">Forgeloop</span>
      <ul className="flex gap-6">
        {links.map((link) => (
          <li key={link.href}>
            <a href={link.href} className="text-gray-700 hover:text-blue-600">
              {link.label}
            </a>
          </li>
        ))}
      </ul>
    </nav>
  );
}

export default Navigation;
`

const heroComponent = `function Hero() {
  return (
    <section className="bg-blue-600 px-6 py-24 text-center text-white">
      <h1 className="text-4xl font-bold">Welcome to the landing page</h1>
      <p className="mx-auto mt-4 max-w-xl text-blue-100">
        A hero banner introducing the product and its value proposition.
      </p>
      <a
        href="#features"
        className="mt-8 inline-block rounded bg-white px-6 py-3 font-medium text-blue-700"
      >
        Get started
      </a>
    </section>
  );
}

export default Hero;
`

const authComponent = `import { useState, type FormEvent } from 'react';
import { login } from '../services/auth';

function AuthForm() {
  const [email, setEmail] = useState('');
  const [password, setPassword] = useState('');
  const [error, setError] = useState<string | null>(null);

  const submit = async (event: FormEvent) => {
    event.preventDefault();
    try {
      await login(email, password);
      setError(null);
    } catch (err) {
      setError(err instanceof Error ? err.message : 'authentication failed');
    }
  };

  return (
    <form onSubmit={submit} className="mx-auto max-w-sm space-y-4 p-6">
      <h2 className="text-xl font-semibold">Login</h2>
      <input
        type="email"
        value={email}
        onChange={(e) => setEmail(e.target.value)}
        placeholder="Email"
        className="w-full rounded border px-3 py-2"
        required
      />
      <input
        type="password"
        value={password}
        onChange={(e) => setPassword(e.target.value)}
        placeholder="Password"
        className="w-full rounded border px-3 py-2"
        required
      />
      {error && <p className="text-sm text-red-600">{error}</p>}
      <button type="submit" className="w-full rounded bg-blue-600 py-2 text-white">
        Sign in
      </button>
    </form>
  );
}

export default AuthForm;
`

const authService = `const TOKEN_KEY = 'auth_token';

export async function login(email: string, password: string): Promise<void> {
  const response = await fetch('/api/auth/login', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify({ email, password }),
  });
  if (!response.ok) {
    throw new Error('invalid credentials');
  }
  const { token } = (await response.json()) as { token: string };
  localStorage.setItem(TOKEN_KEY, token);
}

export function logout(): void {
  localStorage.removeItem(TOKEN_KEY);
}

export function authToken(): string | null {
  return localStorage.getItem(TOKEN_KEY);
}
`

const apiService = `const BASE_URL = import.meta.env.VITE_API_URL ?? '/api';

export async function apiGet<T>(path: string): Promise<T> {
  const response = await fetch(BASE_URL + path);
  if (!response.ok) {
    throw new Error('backend request failed: ' + response.status);
  }
  return (await response.json()) as T;
}

export async function apiPost<T>(path: string, body: unknown): Promise<T> {
  const response = await fetch(BASE_URL + path, {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(body),
  });
  if (!response.ok) {
    throw new Error('backend request failed: ' + response.status);
  }
  return (await response.json()) as T;
}
`

const databaseService = `// Database access configuration. The concrete driver lives server-side;
// the client only knows the connection descriptor shape.
export interface DatabaseConfig {
  kind: string;
  url: string;
}

export const databaseConfig: DatabaseConfig = {
  kind: '%s',
  url: import.meta.env.VITE_DATABASE_URL ?? '',
};

export function describeDatabase(): string {
  return 'database backend: ' + databaseConfig.kind;
}
`

const layoutComponent = `import { ReactNode } from 'react';

interface LayoutProps {
  children?: ReactNode;
}

// Responsive layout shell: single column on mobile, constrained and
// centered on wider viewports.
function Layout({ children }: LayoutProps) {
  return (
    <div className="mx-auto w-full max-w-screen-xl px-4 sm:px-6 lg:px-8">
      {children}
    </div>
  );
}

export default Layout;
`

const cardComponent = `interface CardProps {
  title?: string;
  body?: string;
}

function Card({ title = 'Feature', body = 'Description of this feature.' }: CardProps) {
  return (
    <article className="rounded-lg bg-white p-6 shadow">
      <h3 className="text-lg font-semibold">{title}</h3>
      <p className="mt-2 text-gray-600">{body}</p>
    </article>
  );
}

export default Card;
`

const footerComponent = `function Footer() {
  return (
    <footer className="mt-16 border-t bg-white px-6 py-8 text-center text-sm text-gray-500">
      Built iteratively, one improvement at a time.
    </footer>
  );
}

export default Footer;
`
